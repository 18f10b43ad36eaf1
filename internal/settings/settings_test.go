package settings

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glintcare/glintcare/internal/loyalty"
	"github.com/glintcare/glintcare/internal/shared"
)

func TestDefaultsMatchLoyaltyWeights(t *testing.T) {
	d := Defaults()
	require.Equal(t, loyalty.DefaultScoreWeights(), d.Weights())
	require.Equal(t, FrequencyDaily, d.BackupFrequency)
	require.NoError(t, d.validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	s := Defaults()
	s.BackupFrequency = "hourly"
	require.ErrorIs(t, s.validate(), shared.ErrValidation)

	s = Defaults()
	s.BackupRetentionDays = 0
	require.ErrorIs(t, s.validate(), shared.ErrValidation)

	s = Defaults()
	s.WeightMonetary = -1
	require.ErrorIs(t, s.validate(), shared.ErrValidation)

	s = Defaults()
	s.WeightMonetary, s.WeightFrequency, s.WeightPoints, s.WeightTimeliness = 0, 0, 0, 0
	require.ErrorIs(t, s.validate(), shared.ErrValidation)
}
