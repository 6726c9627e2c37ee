// Package drip holds the preset drip sequences for every campaign type.
// Presets are static: the authoring UI picks a type and the engine walks the
// steps, so changing a preset changes behavior for every campaign of that
// type on its next run.
package drip

import (
	"github.com/lensdesk/lensdesk/internal/campaign"
)

// EnrollmentMode controls how customers enter a campaign of this type.
type EnrollmentMode string

const (
	// EnrollAuto enrolls every segment match on each engine pass.
	EnrollAuto EnrollmentMode = "AUTO"
	// EnrollManual only accepts explicit enrollment through the API.
	EnrollManual EnrollmentMode = "MANUAL"
)

// Step is one message in a drip sequence. DelayDays is measured from
// enrollment, so delays within a sequence must be non-decreasing.
type Step struct {
	Channel   campaign.Channel
	DelayDays int
	Subject   string
	Body      string
}

// Config is the full drip definition for a campaign type.
type Config struct {
	Steps            []Step
	StopOnConversion bool
	CooldownDays     int
	EnrollmentMode   EnrollmentMode
}

// ConfigFor returns the preset for a campaign type. The second return is
// false for unknown types.
func ConfigFor(t campaign.Type) (Config, bool) {
	c, ok := presets[t]
	return c, ok
}

// Types returns all campaign types with a preset.
func Types() []campaign.Type {
	out := make([]campaign.Type, 0, len(presets))
	for t := range presets {
		out = append(out, t)
	}
	return out
}

var presets = map[campaign.Type]Config{
	campaign.TypeWelcomeNewPatient: {
		Steps: []Step{
			{Channel: campaign.ChannelEmail, DelayDays: 0,
				Subject: "Welcome to {{storeName}}",
				Body:    "Hi {{firstName}}, thanks for choosing {{storeName}}! Your eye health records are all set up. Call us at {{storePhone}} anytime."},
			{Channel: campaign.ChannelSMS, DelayDays: 3,
				Body: "Hi {{firstName}}, it's {{storeName}}. Just checking in - any questions about your new glasses or your visit? Text or call {{storePhone}}."},
		},
		StopOnConversion: false,
		CooldownDays:     365,
		EnrollmentMode:   EnrollAuto,
	},
	campaign.TypeExamRecallAnnual: {
		Steps: []Step{
			{Channel: campaign.ChannelEmail, DelayDays: 0,
				Subject: "Time for your annual eye exam, {{firstName}}",
				Body:    "Hi {{firstName}}, it's been about a year since your last exam on {{lastExamDate}}. Book your annual check-up with {{storeName}} today."},
			{Channel: campaign.ChannelSMS, DelayDays: 7,
				Body: "{{firstName}}, your annual eye exam is due. Reply or call {{storePhone}} to book with {{storeName}}."},
			{Channel: campaign.ChannelEmail, DelayDays: 14,
				Subject: "Don't skip your eye exam",
				Body:    "Hi {{firstName}}, annual exams catch problems early. We have openings this week at {{storeName}} - call {{storePhone}}."},
		},
		StopOnConversion: true,
		CooldownDays:     180,
		EnrollmentMode:   EnrollAuto,
	},
	campaign.TypeExamRecallOverdue: {
		Steps: []Step{
			{Channel: campaign.ChannelEmail, DelayDays: 0,
				Subject: "We miss you at {{storeName}}",
				Body:    "Hi {{firstName}}, it's been a while since your last visit on {{lastExamDate}}. Your vision changes over time - let's get you checked. Call {{storePhone}}."},
			{Channel: campaign.ChannelSMS, DelayDays: 10,
				Body: "{{firstName}}, your eye exam is overdue. {{storeName}} can see you this week - call {{storePhone}}."},
		},
		StopOnConversion: true,
		CooldownDays:     120,
		EnrollmentMode:   EnrollAuto,
	},
	campaign.TypeRxExpiringSoon: {
		Steps: []Step{
			{Channel: campaign.ChannelEmail, DelayDays: 0,
				Subject: "Your prescription expires {{rxExpiryDate}}",
				Body:    "Hi {{firstName}}, your prescription expires on {{rxExpiryDate}}. Order new glasses or contacts before it lapses - visit {{storeName}} or call {{storePhone}}."},
			{Channel: campaign.ChannelSMS, DelayDays: 7,
				Body: "{{firstName}}, your Rx expires {{rxExpiryDate}}. Use it before you need a new exam! {{storeName}} {{storePhone}}"},
		},
		StopOnConversion: true,
		CooldownDays:     90,
		EnrollmentMode:   EnrollAuto,
	},
	campaign.TypeRxExpired: {
		Steps: []Step{
			{Channel: campaign.ChannelEmail, DelayDays: 0,
				Subject: "Your prescription has expired",
				Body:    "Hi {{firstName}}, your prescription expired on {{rxExpiryDate}}. Book a quick exam at {{storeName}} to refresh it - call {{storePhone}}."},
		},
		StopOnConversion: true,
		CooldownDays:     90,
		EnrollmentMode:   EnrollAuto,
	},
	campaign.TypePickupFollowup: {
		Steps: []Step{
			{Channel: campaign.ChannelSMS, DelayDays: 3,
				Body: "Hi {{firstName}}, how are the new {{frameBrand}} {{frameModel}} treating you? If anything needs adjusting, stop by {{storeName}} - free of charge."},
			{Channel: campaign.ChannelEmail, DelayDays: 14,
				Subject: "How are your new glasses?",
				Body:    "Hi {{firstName}}, you picked up your {{frameBrand}} glasses on {{pickupDate}}. Free adjustments and cleanings for life at {{storeName}}."},
		},
		StopOnConversion: false,
		CooldownDays:     60,
		EnrollmentMode:   EnrollAuto,
	},
	campaign.TypeContactLensRefill: {
		Steps: []Step{
			{Channel: campaign.ChannelSMS, DelayDays: 0,
				Body: "{{firstName}}, running low on contacts? Reorder from {{storeName}} in one call: {{storePhone}}."},
			{Channel: campaign.ChannelEmail, DelayDays: 7,
				Subject: "Time to reorder your contacts",
				Body:    "Hi {{firstName}}, based on your last order it's about time for a refill. {{storeName}} can ship directly to your door."},
		},
		StopOnConversion: true,
		CooldownDays:     60,
		EnrollmentMode:   EnrollAuto,
	},
	campaign.TypeInsuranceRenewal: {
		Steps: []Step{
			{Channel: campaign.ChannelEmail, DelayDays: 0,
				Subject: "Your {{insuranceProvider}} benefits renew in {{renewalMonth}}",
				Body:    "Hi {{firstName}}, your {{insuranceProvider}} vision benefits renew in {{renewalMonth}}. Fresh benefits mean a covered exam and new frames at {{storeName}}."},
		},
		StopOnConversion: true,
		CooldownDays:     300,
		EnrollmentMode:   EnrollAuto,
	},
	campaign.TypeBenefitsYearEnd: {
		Steps: []Step{
			{Channel: campaign.ChannelEmail, DelayDays: 0,
				Subject: "Use your vision benefits before they expire",
				Body:    "Hi {{firstName}}, unused {{insuranceProvider}} benefits disappear at year end. Book now at {{storeName}} and put them to work."},
			{Channel: campaign.ChannelSMS, DelayDays: 14,
				Body: "{{firstName}}, your vision benefits expire soon - don't leave money on the table. {{storeName}} {{storePhone}}"},
			{Channel: campaign.ChannelEmail, DelayDays: 14,
				Subject: "Last call for your 2026 benefits",
				Body:    "Hi {{firstName}}, this is the last reminder - your vision benefits reset soon. {{storeName}} has appointments this week."},
		},
		StopOnConversion: true,
		CooldownDays:     300,
		EnrollmentMode:   EnrollAuto,
	},
	campaign.TypeBirthday: {
		Steps: []Step{
			{Channel: campaign.ChannelEmail, DelayDays: 0,
				Subject: "Happy birthday, {{firstName}}!",
				Body:    "Happy birthday {{firstName}}! Celebrate with 20% off any frame at {{storeName}} this month. See you soon!"},
		},
		StopOnConversion: false,
		CooldownDays:     330,
		EnrollmentMode:   EnrollAuto,
	},
	campaign.TypeWinback12Month: {
		Steps: []Step{
			{Channel: campaign.ChannelEmail, DelayDays: 0,
				Subject: "It's been a year - come see us",
				Body:    "Hi {{firstName}}, it's been about a year since your last visit to {{storeName}}. A lot can change in a year, including your eyes. Call {{storePhone}}."},
			{Channel: campaign.ChannelSMS, DelayDays: 10,
				Body: "{{firstName}}, we'd love to see you back at {{storeName}}. Book anytime: {{storePhone}}."},
		},
		StopOnConversion: true,
		CooldownDays:     180,
		EnrollmentMode:   EnrollAuto,
	},
	campaign.TypeWinback24Month: {
		Steps: []Step{
			{Channel: campaign.ChannelEmail, DelayDays: 0,
				Subject: "We'd love to see you again, {{firstName}}",
				Body:    "Hi {{firstName}}, it's been two years since your last visit. {{storeName}} has new frames, new lens tech, and the same team. Welcome back offer inside - call {{storePhone}}."},
			{Channel: campaign.ChannelEmail, DelayDays: 21,
				Subject: "One more nudge from {{storeName}}",
				Body:    "Hi {{firstName}}, this is our last note - we'd truly love to take care of your eyes again. {{storePhone}}."},
		},
		StopOnConversion: true,
		CooldownDays:     365,
		EnrollmentMode:   EnrollAuto,
	},
	campaign.TypeSecondPairOffer: {
		Steps: []Step{
			{Channel: campaign.ChannelEmail, DelayDays: 0,
				Subject: "Your second pair is half off",
				Body:    "Hi {{firstName}}, loved your {{frameBrand}} purchase? A second pair - sunglasses, computer glasses, a backup - is 50% off at {{storeName}} this month."},
		},
		StopOnConversion: true,
		CooldownDays:     120,
		EnrollmentMode:   EnrollAuto,
	},
	campaign.TypeSunglassSeasonal: {
		Steps: []Step{
			{Channel: campaign.ChannelEmail, DelayDays: 0,
				Subject: "Sunglass season is here",
				Body:    "Hi {{firstName}}, summer's coming. Prescription sunglasses from {{storeName}} start at $99 with your current Rx."},
			{Channel: campaign.ChannelSMS, DelayDays: 14,
				Body: "{{firstName}}, protect your eyes this summer - Rx sunglasses at {{storeName}}. {{storePhone}}"},
		},
		StopOnConversion: true,
		CooldownDays:     270,
		EnrollmentMode:   EnrollManual,
	},
	campaign.TypeReferralInvite: {
		Steps: []Step{
			{Channel: campaign.ChannelEmail, DelayDays: 0,
				Subject: "Give $25, get $25",
				Body:    "Hi {{firstName}}, share your code {{referralCode}} with friends. They get $25 off their first pair at {{storeName}}, and so do you."},
		},
		StopOnConversion: false,
		CooldownDays:     180,
		EnrollmentMode:   EnrollAuto,
	},
	campaign.TypeReferralThankYou: {
		Steps: []Step{
			{Channel: campaign.ChannelEmail, DelayDays: 0,
				Subject: "Thank you for the referral!",
				Body:    "Hi {{firstName}}, your friend just made their first purchase with your code {{referralCode}}. Your $25 credit is waiting at {{storeName}}!"},
		},
		StopOnConversion: false,
		CooldownDays:     0,
		EnrollmentMode:   EnrollManual,
	},
	campaign.TypeReviewRequest: {
		Steps: []Step{
			{Channel: campaign.ChannelSMS, DelayDays: 7,
				Body: "Hi {{firstName}}, thanks for visiting {{storeName}}! If we earned it, a quick review helps our small practice a lot."},
		},
		StopOnConversion: false,
		CooldownDays:     180,
		EnrollmentMode:   EnrollAuto,
	},
	campaign.TypeAbandonedQuote: {
		Steps: []Step{
			{Channel: campaign.ChannelEmail, DelayDays: 1,
				Subject: "Your quote from {{storeName}} is waiting",
				Body:    "Hi {{firstName}}, we held the quote we put together for you. Questions about lenses or pricing? Call {{storePhone}} and we'll walk through it."},
			{Channel: campaign.ChannelSMS, DelayDays: 5,
				Body: "{{firstName}}, your glasses quote at {{storeName}} is still good this week. {{storePhone}}"},
		},
		StopOnConversion: true,
		CooldownDays:     30,
		EnrollmentMode:   EnrollAuto,
	},
	campaign.TypeNoShowRebook: {
		Steps: []Step{
			{Channel: campaign.ChannelSMS, DelayDays: 0,
				Body: "Hi {{firstName}}, we missed you at your appointment today. No problem - reply or call {{storePhone}} and we'll rebook you at {{storeName}}."},
			{Channel: campaign.ChannelEmail, DelayDays: 3,
				Subject: "Let's find a better time",
				Body:    "Hi {{firstName}}, life happens! {{storeName}} has evening and weekend slots - pick a time that works: {{storePhone}}."},
		},
		StopOnConversion: true,
		CooldownDays:     30,
		EnrollmentMode:   EnrollAuto,
	},
	campaign.TypeBackToSchool: {
		Steps: []Step{
			{Channel: campaign.ChannelEmail, DelayDays: 0,
				Subject: "Back-to-school eye exams at {{storeName}}",
				Body:    "Hi {{firstName}}, 80% of classroom learning is visual. Get the kids' eyes checked before school starts - {{storeName}}, {{storePhone}}."},
			{Channel: campaign.ChannelSMS, DelayDays: 10,
				Body: "{{firstName}}, school's almost here - book the kids' eye exams at {{storeName}}. {{storePhone}}"},
		},
		StopOnConversion: true,
		CooldownDays:     300,
		EnrollmentMode:   EnrollManual,
	},
	campaign.TypeWarrantyExpiring: {
		Steps: []Step{
			{Channel: campaign.ChannelEmail, DelayDays: 0,
				Subject: "Your frame warranty ends soon",
				Body:    "Hi {{firstName}}, the one-year warranty on your {{frameBrand}} {{frameModel}} ends soon. Bring them in for a free inspection and tune-up at {{storeName}}."},
		},
		StopOnConversion: false,
		CooldownDays:     365,
		EnrollmentMode:   EnrollAuto,
	},
}
