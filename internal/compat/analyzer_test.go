package compat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcplane/mcpd/internal/compat"
	"github.com/mcplane/mcpd/internal/reqs"
)

func TestAnalyzeChangedPatchBumpIsLowRisk(t *testing.T) {
	pa := compat.AnalyzeChanged("requests",
		reqs.Constraint{Op: reqs.OpExact, Version: "2.26.0"},
		reqs.Constraint{Op: reqs.OpExact, Version: "2.26.1"},
	)
	assert.Equal(t, compat.RiskLow, pa.Risk)
	assert.Empty(t, pa.Recommendations)
}

func TestAnalyzeChangedMajorBumpIsHighRisk(t *testing.T) {
	pa := compat.AnalyzeChanged("django",
		reqs.Constraint{Op: reqs.OpExact, Version: "3.2.0"},
		reqs.Constraint{Op: reqs.OpExact, Version: "4.0.0"},
	)
	assert.Equal(t, compat.RiskHigh, pa.Risk)
	assert.Contains(t, pa.Recommendations, "review changelog for breaking changes")
}

func TestAnalyzeChangedMinorBumpIsMediumRisk(t *testing.T) {
	pa := compat.AnalyzeChanged("flask",
		reqs.Constraint{Op: reqs.OpExact, Version: "2.0.0"},
		reqs.Constraint{Op: reqs.OpExact, Version: "2.1.0"},
	)
	assert.Equal(t, compat.RiskMedium, pa.Risk)
}

func TestAnalyzeChangedDowngradeIsHighRisk(t *testing.T) {
	pa := compat.AnalyzeChanged("requests",
		reqs.Constraint{Op: reqs.OpExact, Version: "2.26.0"},
		reqs.Constraint{Op: reqs.OpExact, Version: "1.9.0"},
	)
	assert.Equal(t, compat.RiskHigh, pa.Risk)
}

func TestAnalyzeChangedRelaxationIsMediumRiskWithPinRecommendation(t *testing.T) {
	pa := compat.AnalyzeChanged("requests",
		reqs.Constraint{Op: reqs.OpExact, Version: "2.26.0"},
		reqs.Constraint{Op: reqs.OpAtLeast, Version: "2.26.0"},
	)
	assert.Equal(t, compat.RiskMedium, pa.Risk)
	assert.Contains(t, pa.Recommendations, "consider pinning")
}

func TestAnalyzeChangedTighteningIsLowRisk(t *testing.T) {
	pa := compat.AnalyzeChanged("requests",
		reqs.Constraint{Op: reqs.OpAtLeast, Version: "2.26.0"},
		reqs.Constraint{Op: reqs.OpExact, Version: "2.26.0"},
	)
	assert.Equal(t, compat.RiskLow, pa.Risk)
}

func TestAnalyzeChangedUnparseableVersionIsUnknownRisk(t *testing.T) {
	pa := compat.AnalyzeChanged("weirdpkg",
		reqs.Constraint{Op: reqs.OpExact, Version: "abc"},
		reqs.Constraint{Op: reqs.OpExact, Version: "def"},
	)
	assert.Equal(t, compat.RiskUnknown, pa.Risk)
}

func TestAnalyzeAddedDevToolIsLowRisk(t *testing.T) {
	pa := compat.AnalyzeAdded("pytest", reqs.Constraint{Op: reqs.OpExact, Version: "7.0.0"})
	assert.Equal(t, compat.RiskLow, pa.Risk)
}

func TestAnalyzeAddedSecurityPackageIsMediumRiskWithReview(t *testing.T) {
	pa := compat.AnalyzeAdded("cryptography", reqs.Constraint{Op: reqs.OpExact, Version: "41.0.0"})
	assert.Equal(t, compat.RiskMedium, pa.Risk)
	assert.Contains(t, pa.Recommendations[0], "security")
}

func TestAnalyzeAddedNonExactConstraintRecommendsPin(t *testing.T) {
	pa := compat.AnalyzeAdded("somepkg", reqs.Constraint{Op: reqs.OpAtLeast, Version: "1.0.0"})
	assert.Equal(t, compat.RiskMedium, pa.Risk)
	assert.Contains(t, pa.Recommendations, "pin to a specific version for reproducibility")
}

func TestAnalyzeRemovedWithPossibleReplacement(t *testing.T) {
	pa := compat.AnalyzeRemoved("requests", reqs.Constraint{Op: reqs.OpExact, Version: "2.26.0"},
		[]string{"httpx"})
	assert.Contains(t, pa.Analysis, "no obvious replacement")

	pa2 := compat.AnalyzeRemoved("python-dotenv", reqs.Constraint{Op: reqs.OpExact, Version: "0.19.0"},
		[]string{"dotenv"})
	assert.Contains(t, pa2.Analysis, "possibly replaced by dotenv")
}

func TestIsCriticalDependency(t *testing.T) {
	assert.True(t, compat.IsCriticalDependency("Django"))
	assert.False(t, compat.IsCriticalDependency("requests"))
}
