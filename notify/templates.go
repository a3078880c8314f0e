package notify

import (
	"fmt"

	"github.com/warp/worktime-engine/compliance"
	"github.com/warp/worktime-engine/generic"
)

type template func(f compliance.Finding) string

var templates = map[compliance.Code]template{
	compliance.CodeMissingWorkday: func(f compliance.Finding) string {
		return fmt.Sprintf("No punches were recorded on %s. Please add your working time or an absence.", f.Date)
	},
	compliance.CodeMissingPunch: func(f compliance.Finding) string {
		return fmt.Sprintf("A punch is missing on %s (%s). Please complete your entries.", f.Date, f.Detail)
	},
	compliance.CodeRestPeriod: func(f compliance.Finding) string {
		return fmt.Sprintf("The rest period before %s was %s, below the required %s.", f.Date, f.Observed, f.Limit)
	},
	compliance.CodeAverageExceeded: func(f compliance.Finding) string {
		return fmt.Sprintf("Your average daily working time of %s over the last %s exceeds %s.", f.Observed, f.Detail, f.Limit)
	},
	compliance.CodeMaxDailyExceeded: func(f compliance.Finding) string {
		return fmt.Sprintf("On %s you worked %s, above the daily maximum of %s.", f.Date, f.Observed, f.Limit)
	},
	compliance.CodeSundayHolidayWork: func(f compliance.Finding) string {
		return fmt.Sprintf("Work was recorded on %s (%s).", f.Date, f.Detail)
	},
	compliance.CodeMinorWeeklyHours: func(f compliance.Finding) string {
		return fmt.Sprintf("In the week starting %s you worked %s, above the youth maximum of %s.", f.Date, f.Observed, f.Limit)
	},
	compliance.CodeMinorWorkdays: func(f compliance.Finding) string {
		return fmt.Sprintf("In the week starting %s you worked on too many days: %s.", f.Date, f.Detail)
	},
	compliance.CodeMinorWorkWindow: func(f compliance.Finding) string {
		return fmt.Sprintf("On %s a punch at %s lies outside the youth work window.", f.Date, f.Detail)
	},
}

// Render returns the message for f. Unknown codes are a programming error.
func Render(f compliance.Finding) (string, error) {
	t, ok := templates[f.Code]
	if !ok {
		return "", fmt.Errorf("%w: %d", generic.ErrUnknownCode, int(f.Code))
	}
	return t(f), nil
}
