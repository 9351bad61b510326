package reporter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/causalstack/causal-sentinel/internal/models"
)

const rulePack = `rules:
  - id: vcs-rollback
    match:
      source: VCS
      status: ATTRIBUTED
    advice:
      - "Revert the linked commit."
  - id: payment-path
    match:
      component_contains: [payment]
    advice:
      - "Page the payments on-call."
`

func writeRulePack(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "advice.yaml")
	if err := os.WriteFile(path, []byte(rulePack), 0o644); err != nil {
		t.Fatalf("write rule pack: %v", err)
	}
	return path
}

func TestAdvisorMatchesRules(t *testing.T) {
	advisor, err := NewAdvisor(writeRulePack(t), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report := models.ImpactReport{
		Status: models.StatusAttributed,
		Cause: &models.CandidateCause{Event: models.ExternalEvent{
			Source:    models.SourceVCS,
			Component: "payment_api",
		}},
	}
	advice := advisor.Advise(report)
	if len(advice) != 2 {
		t.Fatalf("expected both rules to fire, got %v", advice)
	}
}

func TestAdvisorSkipsNonMatching(t *testing.T) {
	advisor, err := NewAdvisor(writeRulePack(t), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report := models.ImpactReport{Status: models.StatusUnattributed}
	if advice := advisor.Advise(report); len(advice) != 0 {
		t.Fatalf("expected no advice without a cause, got %v", advice)
	}
}

func TestAdvisorNilReceiver(t *testing.T) {
	advisor, err := NewAdvisor("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if advisor != nil {
		t.Fatalf("empty path should yield a nil advisor")
	}
	if advice := advisor.Advise(models.ImpactReport{}); advice != nil {
		t.Fatalf("nil advisor must advise nothing, got %v", advice)
	}
}

func TestAdvisorMissingFileIsNil(t *testing.T) {
	advisor, err := NewAdvisor(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if advisor != nil {
		t.Fatalf("missing rule pack should yield a nil advisor")
	}
}
