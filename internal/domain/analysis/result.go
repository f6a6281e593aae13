package analysis

// Kind tags which variant of Result is populated.
type Kind string

const (
	KindIndividual Kind = "individual"
	KindClass      Kind = "class"
)

// SubjectScore pairs a subject with a score or a mean.
type SubjectScore struct {
	Subject string  `json:"subject"`
	Score   float64 `json:"score"`
}

// Individual is the profile of one student against the class.
type Individual struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// OwnAverage is the mean of the student's scores over the selected subjects.
	OwnAverage float64 `json:"own_average"`
	// ClassAverage is the grand mean of the flattened students x subjects
	// matrix, not the mean of per-student averages.
	ClassAverage float64 `json:"class_average"`
	// Percentile is the share of the other students whose average is
	// strictly below OwnAverage, times 100. It is 0 for a class of one.
	Percentile float64 `json:"percentile"`
	// Strengths holds up to two subjects by descending score.
	Strengths []SubjectScore `json:"strengths"`
	// Weaknesses holds up to two subjects by ascending score.
	Weaknesses []SubjectScore `json:"weaknesses"`
	// Scores lists every selected subject in selection order.
	Scores []SubjectScore `json:"scores"`
}

// Weakest returns the single lowest subject.
func (in *Individual) Weakest() (SubjectScore, bool) {
	if in == nil || len(in.Weaknesses) == 0 {
		return SubjectScore{}, false
	}
	return in.Weaknesses[0], true
}

// ScoreOf returns the student's score in subject.
func (in *Individual) ScoreOf(subject string) (float64, bool) {
	for _, s := range in.Scores {
		if s.Subject == subject {
			return s.Score, true
		}
	}
	return 0, false
}

// ClassWide summarizes the whole table.
type ClassWide struct {
	Students int     `json:"students"`
	Subjects int     `json:"subjects"`
	Mean     float64 `json:"mean"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	// Std is the population standard deviation of the flattened matrix.
	Std          float64        `json:"std"`
	SubjectMeans []SubjectScore `json:"subject_means"`
	Best         SubjectScore   `json:"best"`
	Worst        SubjectScore   `json:"worst"`
}

// Gap is the distance between the best and the worst subject means.
func (c *ClassWide) Gap() float64 { return c.Best.Score - c.Worst.Score }

// Result is a tagged union: exactly one of Individual and Class is set,
// according to Kind.
type Result struct {
	Kind       Kind        `json:"kind"`
	Individual *Individual `json:"individual,omitempty"`
	Class      *ClassWide  `json:"class,omitempty"`
}
