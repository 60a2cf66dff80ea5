package memberauth

// Question defines a public type used by memberauth APIs.
//
// Question instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Question struct {
	ID     string
	Prompt string
}

// The catalog is versioned by ID stability: prompts may be reworded, IDs
// never change once a user has enrolled against them.
var questionCatalog = []Question{
	{ID: "best_friend_elementary", Prompt: "What is the name of your best friend in elementary school?"},
	{ID: "favorite_pet_name", Prompt: "What is the name of your favorite pet?"},
	{ID: "favorite_teacher_hs", Prompt: "Who was your favorite teacher in high school?"},
	{ID: "first_crush_name", Prompt: "What is the name of your first crush?"},
	{ID: "mother_maiden_name", Prompt: "What is your mother's maiden name?"},
	{ID: "city_of_birth", Prompt: "In what city were you born?"},
	{ID: "first_car_model", Prompt: "What was the model of your first car?"},
	{ID: "childhood_nickname", Prompt: "What was your childhood nickname?"},
	{ID: "favorite_book", Prompt: "What is your favorite book?"},
	{ID: "paternal_grandmother_name", Prompt: "What is the first name of your paternal grandmother?"},
	{ID: "first_concert", Prompt: "What was the first concert you attended?"},
	{ID: "dream_job", Prompt: "What was your dream job as a child?"},
}

var questionPrompts = func() map[string]string {
	m := make(map[string]string, len(questionCatalog))
	for _, q := range questionCatalog {
		m[q.ID] = q.Prompt
	}
	return m
}()

// Questions returns the enrollment catalog in presentation order. The
// returned slice is a copy; callers may reorder it freely.
func Questions() []Question {
	out := make([]Question, len(questionCatalog))
	copy(out, questionCatalog)
	return out
}

// QuestionPrompt resolves a catalog ID to its current prompt text.
func QuestionPrompt(id string) (string, bool) {
	prompt, ok := questionPrompts[id]
	return prompt, ok
}

func validQuestionID(id string) bool {
	_, ok := questionPrompts[id]
	return ok
}
