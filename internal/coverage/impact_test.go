package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssessPrivateLowRisk(t *testing.T) {
	assert.Equal(t, RiskLow, Assess(ImpactInput{IsPublic: false, CallerCount: 2, CrossFile: false}))
}

func TestAssessPrivateCrossFileManyCallersIsMedium(t *testing.T) {
	assert.Equal(t, RiskMedium, Assess(ImpactInput{IsPublic: false, CallerCount: 20, CrossFile: true}))
}

func TestAssessPublicCrossFileManyCallersIsHigh(t *testing.T) {
	assert.Equal(t, RiskHigh, Assess(ImpactInput{IsPublic: true, CallerCount: 20, CrossFile: true}))
}

func TestAssessPublicCrossFileFewCallersIsMedium(t *testing.T) {
	assert.Equal(t, RiskMedium, Assess(ImpactInput{IsPublic: true, CallerCount: 1, CrossFile: true}))
}

func TestAssessPublicCrossFileNoCallersIsLow(t *testing.T) {
	assert.Equal(t, RiskLow, Assess(ImpactInput{IsPublic: true, CallerCount: 0, CrossFile: true}))
}

func TestAssessPublicSameFileLowRisk(t *testing.T) {
	assert.Equal(t, RiskLow, Assess(ImpactInput{IsPublic: true, CallerCount: 2, CrossFile: false}))
}
