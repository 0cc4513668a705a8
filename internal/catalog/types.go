// Package catalog holds the topic catalog: topics, their quiz question
// banks, and linked projects. Content is authored externally and read-only
// from the engine's point of view.
package catalog

// Topic is a single catalog entry.
type Topic struct {
	ID         int64     `yaml:"id"`
	Name       string    `yaml:"name"`
	Content    string    `yaml:"content"`
	Difficulty string    `yaml:"difficulty"`
	OrderHint  int       `yaml:"order"`
	Projects   []Project `yaml:"projects"`
}

// Project is a hands-on project linked to a topic.
type Project struct {
	ID    int64  `yaml:"id"`
	Title string `yaml:"title"`
}

// QuizQuestion belongs to exactly one topic and carries an ordered option set.
type QuizQuestion struct {
	ID          int64        `yaml:"id"`
	TopicID     int64        `yaml:"-"`
	Prompt      string       `yaml:"prompt"`
	Explanation string       `yaml:"explanation"`
	Options     []QuizOption `yaml:"options"`
}

// QuizOption is one answer choice. Keys are unique within a question.
type QuizOption struct {
	Key     string `yaml:"key"`
	Label   string `yaml:"label"`
	Correct bool   `yaml:"correct"`
}

// CorrectKey returns the key of the first option flagged correct,
// or false when the question has none configured.
func (q QuizQuestion) CorrectKey() (string, bool) {
	for _, opt := range q.Options {
		if opt.Correct {
			return opt.Key, true
		}
	}
	return "", false
}

// Difficulty labels recognized by DifficultyRank. Unknown labels rank
// as beginner so authoring typos never hide a topic.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// DifficultyRank maps a coarse difficulty label to a sortable rank.
func DifficultyRank(label string) int {
	switch label {
	case DifficultyIntermediate:
		return 2
	case DifficultyAdvanced:
		return 3
	default:
		return 1
	}
}
