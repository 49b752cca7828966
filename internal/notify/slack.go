package notify

import (
	"context"
	"fmt"
	"strings"

	"modecalib/internal/calibrate"
	"modecalib/internal/domain"

	"github.com/slack-go/slack"
)

type SlackNotifier struct {
	api       *slack.Client
	channelID string
}

func NewSlackNotifier(api *slack.Client, channelID string) *SlackNotifier {
	return &SlackNotifier{api: api, channelID: channelID}
}

func (n *SlackNotifier) Notify(ctx context.Context, text string) error {
	_, _, err := n.api.PostMessageContext(ctx, n.channelID, slack.MsgOptionText(text, false))
	return err
}

// FormatSummary renders a calibration result and its per-mode agreement as
// a short Slack message.
func FormatSummary(res domain.CalibrationResult, agreement []calibrate.ModeAgreement) string {
	var b strings.Builder
	if !res.Found {
		fmt.Fprintf(&b, "Calibration of `%s` found no thresholds (%s after %d iterations).", res.Table, res.StopReason, res.Iterations)
		return b.String()
	}
	fmt.Fprintf(&b, "Calibration of `%s` finished (%s after %d iterations).\n", res.Table, res.StopReason, res.Iterations)
	fmt.Fprintf(&b, "Thresholds km/h: still ≤ %.2f < walk ≤ %.2f < bike ≤ %.2f < car\n",
		res.Thresholds.StillWalk, res.Thresholds.WalkBike, res.Thresholds.BikeCar)
	fmt.Fprintf(&b, "Error rate: %.2f%% over %d rows, %d rows updated", res.ErrorRate*100, res.Records, res.Updated)

	for _, a := range agreement {
		if a.Total == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n• %s: %d/%d correct (%.0f%%)", a.Mode, a.Correct, a.Total, a.Recall()*100)
	}
	return b.String()
}
