package team

import (
	"fmt"
	"math"

	"github.com/lox/rallysim/internal/rerr"
)

// Quality is the ordinal tag used as a lookup key into the conditional model:
// the reception quality carried forward to choose a set-quality row, and the set
// quality carried forward to choose an attack-outcome row.
type Quality uint8

const (
	QualityPerfect Quality = iota
	QualityGood
	QualityPoor
)

func (q Quality) String() string {
	switch q {
	case QualityPerfect:
		return "Perfect"
	case QualityGood:
		return "Good"
	case QualityPoor:
		return "Poor"
	default:
		return "Unknown"
	}
}

// SetQualityRow gives P(set-quality | a fixed reception quality); must sum to 1.
type SetQualityRow struct {
	Perfect float64
	Good    float64
	Poor    float64
}

func (r SetQualityRow) sum() float64 { return r.Perfect + r.Good + r.Poor }

// AttackRow gives P(kill), P(error) | a fixed set quality; the remainder is
// AttackDefended and is not stored here (it's 1 - Kill - Error).
type AttackRow struct {
	Kill  float64
	Error float64
}

// ConditionalModel is the fixed lookup giving P(set-quality | reception-quality)
// and P(attack-outcome | set-quality). Read-only once built.
type ConditionalModel struct {
	ReceptionToSet map[Quality]SetQualityRow
	SetToAttack    map[Quality]AttackRow
}

// DefaultConditionalModel returns the canonical tables from the spec:
//
//	P(Set=Perfect,Good,Poor | Reception):
//	  Perfect -> (0.90, 0.08, 0.02)
//	  Good    -> (0.60, 0.35, 0.05)
//	  Poor    -> (0.20, 0.60, 0.20)
//
//	P(kill, error | Set):
//	  Perfect -> (0.60, 0.15)
//	  Good    -> (0.40, 0.20)
//	  Poor    -> (0.20, 0.35)
func DefaultConditionalModel() ConditionalModel {
	return ConditionalModel{
		ReceptionToSet: map[Quality]SetQualityRow{
			QualityPerfect: {Perfect: 0.90, Good: 0.08, Poor: 0.02},
			QualityGood:    {Perfect: 0.60, Good: 0.35, Poor: 0.05},
			QualityPoor:    {Perfect: 0.20, Good: 0.60, Poor: 0.20},
		},
		SetToAttack: map[Quality]AttackRow{
			QualityPerfect: {Kill: 0.60, Error: 0.15},
			QualityGood:    {Kill: 0.40, Error: 0.20},
			QualityPoor:    {Kill: 0.20, Error: 0.35},
		},
	}
}

// Validate checks that every row sums to 1 within tolerance and that every
// quality key used by the rally state machine is present.
func (m ConditionalModel) Validate() error {
	for _, q := range []Quality{QualityPerfect, QualityGood, QualityPoor} {
		row, ok := m.ReceptionToSet[q]
		if !ok {
			return fmt.Errorf("%w: conditional model missing reception->set row for %s", rerr.ErrInvalidStats, q)
		}
		if s := row.sum(); math.Abs(s-1) > 1e-6 {
			return fmt.Errorf("%w: reception->set row %s sums to %v, want 1", rerr.ErrInvalidStats, q, s)
		}
		attack, ok := m.SetToAttack[q]
		if !ok {
			return fmt.Errorf("%w: conditional model missing set->attack row for %s", rerr.ErrInvalidStats, q)
		}
		if attack.Kill+attack.Error > 1+1e-9 {
			return fmt.Errorf("%w: set->attack row %s kill+error = %v exceeds 1", rerr.ErrInvalidStats, q, attack.Kill+attack.Error)
		}
	}
	return nil
}
