package drip

import (
	"testing"

	"github.com/lensdesk/lensdesk/internal/campaign"
)

func TestEveryPresetIsComplete(t *testing.T) {
	types := Types()
	if len(types) != 21 {
		t.Fatalf("expected 21 campaign type presets, got %d", len(types))
	}

	for _, ct := range types {
		cfg, ok := ConfigFor(ct)
		if !ok {
			t.Fatalf("ConfigFor(%s) returned ok=false", ct)
		}
		if len(cfg.Steps) == 0 {
			t.Errorf("%s: preset has no steps", ct)
		}
		if cfg.EnrollmentMode != EnrollAuto && cfg.EnrollmentMode != EnrollManual {
			t.Errorf("%s: invalid enrollment mode %q", ct, cfg.EnrollmentMode)
		}
		for i, step := range cfg.Steps {
			if step.Channel != campaign.ChannelSMS && step.Channel != campaign.ChannelEmail {
				t.Errorf("%s step %d: invalid channel %q", ct, i, step.Channel)
			}
			if step.Body == "" {
				t.Errorf("%s step %d: empty body", ct, i)
			}
			if step.Channel == campaign.ChannelEmail && step.Subject == "" {
				t.Errorf("%s step %d: email step without subject", ct, i)
			}
			if step.DelayDays < 0 {
				t.Errorf("%s step %d: negative delay", ct, i)
			}
			// Delays count from enrollment, so they must not go backwards.
			if i > 0 && step.DelayDays < cfg.Steps[i-1].DelayDays {
				t.Errorf("%s step %d: delay %d before previous step's %d",
					ct, i, step.DelayDays, cfg.Steps[i-1].DelayDays)
			}
		}
	}
}

func TestUnknownTypeHasNoPreset(t *testing.T) {
	if _, ok := ConfigFor(campaign.Type("FLASH_SALE")); ok {
		t.Error("expected no preset for unknown type")
	}
}

func TestConversionStoppersHaveCooldown(t *testing.T) {
	for _, ct := range Types() {
		cfg, _ := ConfigFor(ct)
		if cfg.StopOnConversion && cfg.CooldownDays == 0 {
			t.Errorf("%s: stop-on-conversion preset should carry a cooldown", ct)
		}
	}
}
