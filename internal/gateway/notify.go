package gateway

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jonathan/job-agent/internal/types"
)

// ConsoleNotifier writes approval requests and run summaries to a stream,
// typically stdout. It satisfies lifecycle.Notifier and doubles as the
// Responder for the interactive listener.
type ConsoleNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleNotifier creates a notifier writing to out.
func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: out}
}

// SendApprovalRequest prints a job card with the action tokens the
// operator can type back.
func (n *ConsoleNotifier) SendApprovalRequest(_ context.Context, job *types.Job) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n=== Approval needed ===\n")
	fmt.Fprintf(&b, "%s at %s", job.Title, job.Company)
	if job.Location != "" {
		fmt.Fprintf(&b, " (%s)", job.Location)
	}
	fmt.Fprintf(&b, "\nScore: %.2f\n%s\n", job.MatchScore, job.URL)
	if len(job.RequiredSkills) > 0 {
		fmt.Fprintf(&b, "Skills: %s\n", strings.Join(job.RequiredSkills, ", "))
	}
	fmt.Fprintf(&b, "Reply with: %s | %s | %s\n",
		EncodeToken(ActionApply, job.ID),
		EncodeToken(ActionSkip, job.ID),
		EncodeToken(ActionReview, job.ID))
	return n.write(b.String())
}

// SendSummary prints the counters of one orchestration pass.
func (n *ConsoleNotifier) SendSummary(_ context.Context, stats types.RunStats) error {
	return n.write(fmt.Sprintf(
		"\n=== Run summary ===\nScraped: %d  Matched: %d  Applied: %d  Skipped: %d  Errors: %d\n",
		stats.Scraped, stats.Matched, stats.Applied, stats.Skipped, stats.Errors))
}

// Reply prints a handled-event response.
func (n *ConsoleNotifier) Reply(_ context.Context, _ string, message string) error {
	return n.write(message + "\n")
}

func (n *ConsoleNotifier) write(s string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, err := io.WriteString(n.out, s)
	return err
}
