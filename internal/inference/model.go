// Package inference holds the screening model boundary. The shipped model is
// a placeholder that grades randomly; a real classifier drops in behind the
// Analyzer interface without touching ingestion, storage, or retrieval.
package inference

import (
	"math/rand"

	"github.com/areebaatariq/DiabeVision/internal/domain/entity"
)

// Grade is the ordinal diabetic retinopathy severity on the five-point
// international scale.
type Grade int

const (
	GradeNone Grade = iota
	GradeMild
	GradeModerate
	GradeSevere
	GradeProliferative
)

var labels = [...]string{
	"No DR",
	"Mild NPDR",
	"Moderate NPDR",
	"Severe NPDR",
	"Proliferative DR",
}

// Label returns the clinical display label for the grade.
func (g Grade) Label() string {
	if g < GradeNone || g > GradeProliferative {
		return "No DR"
	}
	return labels[g]
}

// Result is one screening outcome. Details are always consistent with Grade.
type Result struct {
	Grade      Grade
	Prediction string
	Confidence int
	Details    entity.Findings
}

// Analyzer produces a screening result for a received image.
type Analyzer interface {
	Analyze() Result
}

// RandomModel grades uniformly at random with a confidence in [85,98].
// Findings still follow the grade deterministically, so output is internally
// consistent even though the grade itself is meaningless.
type RandomModel struct{}

func (RandomModel) Analyze() Result {
	g := Grade(rand.Intn(int(GradeProliferative) + 1))
	return Result{
		Grade:      g,
		Prediction: g.Label(),
		Confidence: 85 + rand.Intn(14),
		Details:    FindingsFor(g),
	}
}

// FindingsFor maps a grade to its lesion flags. The mapping is monotone:
// every flag set at one grade stays set at all higher grades.
func FindingsFor(g Grade) entity.Findings {
	return entity.Findings{
		Microaneurysms:     g > GradeNone,
		Hemorrhages:        g > GradeMild,
		Exudates:           g > GradeMild,
		CottonWoolSpots:    g > GradeModerate,
		Neovascularization: g > GradeSevere,
	}
}

var _ Analyzer = RandomModel{}
