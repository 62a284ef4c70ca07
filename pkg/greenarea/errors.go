package greenarea

import (
	"errors"
	"fmt"

	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/validation"
)

var (
	// ErrNoGreenArea is returned by GenerateBuildable when there is nothing to
	// subtract from.
	ErrNoGreenArea = errors.New("no green area defined")

	// ErrEmptyBuildable is returned when the subtractions leave no area.
	ErrEmptyBuildable = errors.New("buildable area is empty")

	ErrUnknownFeature = errors.New("unknown feature")
)

// LimitError rejects a buildable area whose cuts remove more than the
// permitted share of the green area.
type LimitError struct {
	RemovedM2 float64
	Percent   float64
	Permitted float64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("cuts remove %.2f m² (%.2f%%), above the permitted %.2f%%",
		e.RemovedM2, e.Percent, e.Permitted)
}

// Finding renders the rejection as a report entry.
func (e *LimitError) Finding() validation.Result {
	return validation.Result{
		Level:       validation.LevelBusiness,
		Message:     e.Error(),
		Path:        "parameters.percent_permitido",
		ActualValue: e.Percent,
		Expected:    fmt.Sprintf("<= %.2f", e.Permitted),
		Suggestions: []string{"Reduce the cut polygons or raise percent_permitido"},
	}
}
