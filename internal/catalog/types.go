// Package catalog holds the read-only course tree: semesters containing
// chapters containing units, each unit carrying one video and zero or more
// quiz questions. The tree is loaded once at startup and never mutated.
package catalog

// Question is a single quiz question attached to a unit's video.
type Question struct {
	ID            string   `yaml:"id" json:"id"`
	Text          string   `yaml:"text" json:"text"`
	Options       []string `yaml:"options" json:"options"`
	CorrectAnswer string   `yaml:"correct_answer" json:"correct_answer"`
}

// Video is the single video of a unit together with its quiz questions.
type Video struct {
	ID        string     `yaml:"id" json:"id"`
	Questions []Question `yaml:"questions" json:"questions"`
}

// Unit is the smallest course item: one video, optional quiz.
type Unit struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
	Video Video  `yaml:"video" json:"video"`
}

// HasQuiz reports whether the unit carries any questions.
func (u Unit) HasQuiz() bool {
	return len(u.Video.Questions) > 0
}

// Chapter groups units in fixed order.
type Chapter struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
	Units []Unit `yaml:"units" json:"units"`
}

// Semester groups chapters in fixed order.
type Semester struct {
	ID       string    `yaml:"id" json:"id"`
	Chapters []Chapter `yaml:"chapters" json:"chapters"`
}

// Catalog is the immutable course tree with lookup indexes.
type Catalog struct {
	semesters []Semester

	order        []string // unit IDs in semester -> chapter -> unit order
	position     map[string]int
	units        map[string]Unit
	unitChapter  map[string]string
	unitSemester map[string]string
	chapters     map[string]Chapter
	questionUnit map[string]string
}

// New builds a catalog from an in-memory semester list. Semesters, chapters
// and units keep the order they are given in.
func New(semesters []Semester) *Catalog {
	c := &Catalog{
		semesters:    semesters,
		position:     make(map[string]int),
		units:        make(map[string]Unit),
		unitChapter:  make(map[string]string),
		unitSemester: make(map[string]string),
		chapters:     make(map[string]Chapter),
		questionUnit: make(map[string]string),
	}
	for _, sem := range semesters {
		for _, ch := range sem.Chapters {
			c.chapters[ch.ID] = ch
			for _, u := range ch.Units {
				c.position[u.ID] = len(c.order)
				c.order = append(c.order, u.ID)
				c.units[u.ID] = u
				c.unitChapter[u.ID] = ch.ID
				c.unitSemester[u.ID] = sem.ID
				for _, q := range u.Video.Questions {
					c.questionUnit[q.ID] = u.ID
				}
			}
		}
	}
	return c
}

// Semesters returns the semesters in catalog order.
func (c *Catalog) Semesters() []Semester {
	return c.semesters
}

// Unit returns a unit by ID.
func (c *Catalog) Unit(id string) (Unit, bool) {
	u, ok := c.units[id]
	return u, ok
}

// Chapter returns a chapter by ID.
func (c *Catalog) Chapter(id string) (Chapter, bool) {
	ch, ok := c.chapters[id]
	return ch, ok
}

// UnitIDs returns all unit IDs in flattened course order.
func (c *Catalog) UnitIDs() []string {
	return c.order
}

// PositionOf returns the flattened index of a unit.
func (c *Catalog) PositionOf(unitID string) (int, bool) {
	p, ok := c.position[unitID]
	return p, ok
}

// UnitAt returns the unit at a flattened index.
func (c *Catalog) UnitAt(i int) (Unit, bool) {
	if i < 0 || i >= len(c.order) {
		return Unit{}, false
	}
	return c.units[c.order[i]], true
}

// Len returns the total number of units.
func (c *Catalog) Len() int {
	return len(c.order)
}

// UnitChapter returns the chapter ID a unit belongs to.
func (c *Catalog) UnitChapter(unitID string) (string, bool) {
	id, ok := c.unitChapter[unitID]
	return id, ok
}

// UnitSemester returns the semester ID a unit belongs to.
func (c *Catalog) UnitSemester(unitID string) (string, bool) {
	id, ok := c.unitSemester[unitID]
	return id, ok
}

// UnitQuestionCount returns the number of quiz questions in a unit, 0 for
// unknown units so callers stay total.
func (c *Catalog) UnitQuestionCount(unitID string) int {
	return len(c.units[unitID].Video.Questions)
}

// QuestionUnit returns the unit a question belongs to.
func (c *Catalog) QuestionUnit(questionID string) (string, bool) {
	id, ok := c.questionUnit[questionID]
	return id, ok
}
