package vision

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/kozaktomas/photo-ingest/internal/constants"
)

//go:embed prompts/image_analysis.txt
var imageAnalysisPrompt string

// rawAnalysis is the JSON shape the model is asked to produce. Labels
// carry confidence scores so low-confidence ones can be filtered out
// before they reach the caller.
type rawAnalysis struct {
	Labels []rawLabel `json:"labels"`
	Faces  []Face     `json:"faces"`
}

type rawLabel struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// buildAnalysisPrompt fills the embedded prompt template with the
// configured taxonomy.
func buildAnalysisPrompt(taxonomy Taxonomy) string {
	return fmt.Sprintf(imageAnalysisPrompt,
		constants.MaxLabels,
		constants.MinLabelConfidence,
		strings.Join(taxonomy.Emotions, ", "),
		strings.Join(taxonomy.Genders, ", "),
	)
}

// normalizeAnalysis converts the model output into an Analysis the rest
// of the pipeline can trust: labels filtered by confidence, deduplicated
// and capped; face attributes clamped to the taxonomy.
func normalizeAnalysis(raw *rawAnalysis, taxonomy Taxonomy) *Analysis {
	analysis := &Analysis{
		Labels: make([]string, 0, len(raw.Labels)),
		Faces:  make([]Face, 0, len(raw.Faces)),
	}

	seen := make(map[string]bool)
	for _, label := range raw.Labels {
		if label.Confidence < constants.MinLabelConfidence {
			continue
		}
		name := strings.TrimSpace(label.Name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true

		analysis.Labels = append(analysis.Labels, name)
		if len(analysis.Labels) >= constants.MaxLabels {
			break
		}
	}

	for _, face := range raw.Faces {
		analysis.Faces = append(analysis.Faces, normalizeFace(face, taxonomy))
	}

	return analysis
}

func normalizeFace(face Face, taxonomy Taxonomy) Face {
	if face.AgeRange.Low < 0 {
		face.AgeRange.Low = 0
	}
	if face.AgeRange.High > 100 {
		face.AgeRange.High = 100
	}
	if face.AgeRange.Low > face.AgeRange.High {
		face.AgeRange.Low, face.AgeRange.High = face.AgeRange.High, face.AgeRange.Low
	}

	allowed := make(map[string]string, len(taxonomy.Emotions))
	for _, e := range taxonomy.Emotions {
		allowed[strings.ToUpper(e)] = e
	}
	emotions := make([]Emotion, 0, len(face.Emotions))
	for _, e := range face.Emotions {
		canonical, ok := allowed[strings.ToUpper(e.Type)]
		if !ok {
			continue
		}
		e.Type = canonical
		emotions = append(emotions, e)
	}
	sort.SliceStable(emotions, func(i, j int) bool {
		return emotions[i].Confidence > emotions[j].Confidence
	})
	face.Emotions = emotions

	face.Gender = normalizeGender(face.Gender, taxonomy)
	return face
}

func normalizeGender(gender string, taxonomy Taxonomy) string {
	for _, g := range taxonomy.Genders {
		if strings.EqualFold(g, gender) {
			return g
		}
	}
	return "Unknown"
}
