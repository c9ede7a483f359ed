package agents

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/littl3hero/studentio-backend/internal/cache"
	"github.com/littl3hero/studentio-backend/internal/llmjson"
	"github.com/littl3hero/studentio-backend/internal/logger"
	"github.com/littl3hero/studentio-backend/internal/services"
	"github.com/littl3hero/studentio-backend/internal/types"
)

const (
	examDefaultCount = 5
	examMinCount     = 1
	examMaxCount     = 20
)

const rubricLLM = "1 point per correct answer."
const rubricFallback = "1 point per correct answer. Generated without LLM."

const examinerSystemPrompt = `You write multiple-choice exams. Each question must have exactly 4 options and one correct answer index (0-3), and must reference one of the given topics or weaknesses.
Respond with a single JSON object: {"questions": [{"id": "...", "text": "...", "options": ["...","...","...","..."], "answer": 0}, ...]}
No other keys, no prose.`

// Examiner produces count-exact multiple-choice exams from the latest
// curator snapshot, with a deterministic template pool backing every
// failure mode, and manages the prepared-exam cache.
type Examiner struct {
	llm      Completer
	memory   services.MemoryService
	prepared cache.PreparedExams
	log      *logger.Logger
}

func NewExaminer(llm Completer, memory services.MemoryService, prepared cache.PreparedExams, baseLog *logger.Logger) *Examiner {
	return &Examiner{llm: llm, memory: memory, prepared: prepared, log: baseLog.With("agent", "Examiner")}
}

// ClampCount bounds a requested question count to [1, 20], defaulting to 5
// for the zero value.
func ClampCount(count int) int {
	if count == 0 {
		return examDefaultCount
	}
	if count < examMinCount {
		return examMinCount
	}
	if count > examMaxCount {
		return examMaxCount
	}
	return count
}

// Generate builds an exam with exactly ClampCount(count) questions. It
// never fails: any LLM or parse error lands on the template pool.
func (e *Examiner) Generate(ctx context.Context, studentID string, count int) types.Exam {
	count = ClampCount(count)

	snapshot := e.memory.LastCuratorSnapshot(ctx, studentID)
	hints := services.ExtractSnapshotHints(snapshot)

	topics := hints.Topics
	weaknesses := hints.Weaknesses
	if len(topics) == 0 && len(weaknesses) == 0 {
		topics = []string{"basic concepts"}
		return e.fallbackExam(topics, weaknesses, count)
	}
	if e.llm == nil {
		return e.fallbackExam(topics, weaknesses, count)
	}

	query := strings.Join(append(append([]string{}, topics...), weaknesses...), " ")
	snippets := e.memory.Retrieve(ctx, studentID, query, 5)

	user := fmt.Sprintf(
		"Topics: %s\nWeaknesses: %s\nPrior context:\n%s\n\nWrite exactly %d questions.",
		strings.Join(topics, ", "),
		strings.Join(weaknesses, ", "),
		strings.Join(snippets, "\n---\n"),
		count,
	)

	out, err := e.llm.Complete(ctx, examinerSystemPrompt, user, 0.3, true)
	if err != nil {
		e.log.Warn("Examiner LLM call failed, using template questions", "error", err)
		return e.fallbackExam(topics, weaknesses, count)
	}

	var parsed struct {
		Questions []rawQuestion `json:"questions"`
	}
	if err := llmjson.Decode(out, &parsed); err != nil {
		e.log.Warn("Examiner LLM output not decodable, using template questions", "error", err)
		return e.fallbackExam(topics, weaknesses, count)
	}

	questions := make([]types.ExamQuestion, 0, count)
	for idx, q := range parsed.Questions {
		if len(questions) >= count {
			break
		}
		questions = append(questions, sanitizeQuestion(q, idx))
	}
	if len(questions) < count {
		pool := fallbackQuestions(topics, weaknesses, count-len(questions))
		for _, q := range pool {
			if len(questions) >= count {
				break
			}
			questions = append(questions, q)
		}
		// Re-number so ids stay unique after padding.
		for idx := range questions {
			questions[idx].ID = fmt.Sprintf("q%d", idx+1)
		}
	}

	return types.Exam{OK: true, Questions: questions, Rubric: rubricLLM}
}

// Prepare generates an exam and caches it for the next examiner request.
// Returns the number of questions prepared.
func (e *Examiner) Prepare(ctx context.Context, studentID string, count int, topicHint string) int {
	exam := e.Generate(ctx, studentID, count)
	if err := e.prepared.Put(ctx, studentID, exam); err != nil {
		e.log.Warn("Prepared exam cache write failed", "student_id", studentID, "error", err)
	}
	e.log.Debug("Exam prepared", "student_id", studentID, "questions", len(exam.Questions), "topic_hint", topicHint)
	return len(exam.Questions)
}

// TakePrepared pops the cached exam for the student, if any.
func (e *Examiner) TakePrepared(ctx context.Context, studentID string) (types.Exam, bool) {
	return e.prepared.Take(ctx, studentID)
}

// QuickQuiz serves the legacy topic-and-level quiz route: three questions
// on the topic, with a fixed demo set when no provider is configured.
func (e *Examiner) QuickQuiz(ctx context.Context, topic, level string) types.Exam {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = "general knowledge"
	}
	level = NormalizeLevel(level)

	if e.llm == nil {
		return types.Exam{OK: true, Questions: demoQuizQuestions(), Rubric: rubricFallback}
	}

	user := fmt.Sprintf("Topic: %s\nStudent level: %s\n\nWrite exactly 3 questions.", topic, level)
	out, err := e.llm.Complete(ctx, examinerSystemPrompt, user, 0.3, true)
	if err != nil {
		e.log.Warn("Quiz LLM call failed, using demo questions", "error", err)
		return types.Exam{OK: true, Questions: demoQuizQuestions(), Rubric: rubricFallback}
	}

	var parsed struct {
		Questions []rawQuestion `json:"questions"`
	}
	if err := llmjson.Decode(out, &parsed); err != nil {
		e.log.Warn("Quiz LLM output not decodable, using demo questions", "error", err)
		return types.Exam{OK: true, Questions: demoQuizQuestions(), Rubric: rubricFallback}
	}

	questions := make([]types.ExamQuestion, 0, 3)
	for idx, q := range parsed.Questions {
		if len(questions) >= 3 {
			break
		}
		questions = append(questions, sanitizeQuestion(q, idx))
	}
	for _, q := range demoQuizQuestions() {
		if len(questions) >= 3 {
			break
		}
		q.ID = fmt.Sprintf("q%d", len(questions)+1)
		questions = append(questions, q)
	}
	return types.Exam{OK: true, Questions: questions, Rubric: rubricLLM}
}

func demoQuizQuestions() []types.ExamQuestion {
	return []types.ExamQuestion{
		{
			ID:   "q1",
			Text: "Which definition describes the limit of a sequence?",
			Options: []string{
				"For every epsilon there is an N after which all terms stay within epsilon of the limit",
				"The largest value the sequence ever reaches",
				"The average of the first hundred terms",
				"The value the sequence starts from",
			},
			Answer: 0,
		},
		{
			ID:   "q2",
			Text: "Which data structure is LIFO?",
			Options: []string{
				"Stack",
				"Queue",
				"Linked list",
				"Binary tree",
			},
			Answer: 0,
		},
		{
			ID:   "q3",
			Text: "What is the complexity of binary search on a sorted array?",
			Options: []string{
				"O(log n)",
				"O(n)",
				"O(n log n)",
				"O(1)",
			},
			Answer: 0,
		},
	}
}

func (e *Examiner) fallbackExam(topics, weaknesses []string, count int) types.Exam {
	return types.Exam{
		OK:        true,
		Questions: fallbackQuestions(topics, weaknesses, count),
		Rubric:    rubricFallback,
	}
}

type rawQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Answer  any      `json:"answer"`
}

// sanitizeQuestion coerces one model-provided question into a valid one:
// exactly four options, answer index in [0, 3], non-empty id and text.
func sanitizeQuestion(q rawQuestion, idx int) types.ExamQuestion {
	out := types.ExamQuestion{
		ID:   strings.TrimSpace(q.ID),
		Text: strings.TrimSpace(q.Text),
	}
	if out.ID == "" {
		out.ID = fmt.Sprintf("q%d", idx+1)
	}
	if out.Text == "" {
		out.Text = fmt.Sprintf("Question %d", idx+1)
	}

	options := make([]string, 0, 4)
	for _, opt := range q.Options {
		if len(options) >= 4 {
			break
		}
		opt = strings.TrimSpace(opt)
		if opt == "" {
			opt = fmt.Sprintf("Option %d", len(options)+1)
		}
		options = append(options, opt)
	}
	for len(options) < 4 {
		options = append(options, fmt.Sprintf("Option %d", len(options)+1))
	}
	out.Options = options

	answer := coerceInt(q.Answer)
	if answer < 0 || answer > 3 {
		answer = 0
	}
	out.Answer = answer
	return out
}

func coerceInt(v any) int {
	switch val := v.(type) {
	case int:
		return val
	case float64:
		return int(val)
	case string:
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(val), "%d", &n); err == nil {
			return n
		}
	}
	return 0
}

// fallbackQuestions builds count questions out of topic and weakness
// templates plus generic fillers. The pool is shuffled before sampling;
// the correct option of every template sits at index 0.
func fallbackQuestions(topics, weaknesses []string, count int) []types.ExamQuestion {
	if count < 1 {
		count = 1
	}

	var pool []types.ExamQuestion
	for _, topic := range firstN(topics, 3) {
		pool = append(pool, types.ExamQuestion{
			Text: fmt.Sprintf("Which statement is closest to the topic %q?", topic),
			Options: []string{
				fmt.Sprintf("A core idea of %s", topic),
				"An unrelated everyday observation",
				"A historical date",
				"A unit of measurement",
			},
			Answer: 0,
		})
	}
	for _, weak := range firstN(weaknesses, 3) {
		pool = append(pool, types.ExamQuestion{
			Text: fmt.Sprintf("A typical mistake for you is %q. What helps to avoid it?", weak),
			Options: []string{
				"Slow down and verify exactly that step",
				"Skip the check to save time",
				"Memorize only the final answer",
				"Avoid similar problems entirely",
			},
			Answer: 0,
		})
	}

	generics := []types.ExamQuestion{
		{
			Text: "What is a good first step when a problem looks unfamiliar?",
			Options: []string{
				"Restate it in your own words",
				"Guess an answer immediately",
				"Look for the answer key",
				"Move on to another problem",
			},
			Answer: 0,
		},
		{
			Text: "How should you verify a result?",
			Options: []string{
				"Substitute it back into the original problem",
				"Check that it looks plausible",
				"Compare with a classmate only",
				"Assume it is correct if the steps felt right",
			},
			Answer: 0,
		},
		{
			Text: "What makes reviewing past mistakes useful?",
			Options: []string{
				"It exposes recurring patterns to fix",
				"It fills study time",
				"It replaces practicing new problems",
				"It guarantees a perfect score",
			},
			Answer: 0,
		},
	}

	need := count
	if need < 3 {
		need = 3
	}
	for i := 0; len(pool) < need; i++ {
		pool = append(pool, generics[i%len(generics)])
	}

	rand.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	out := make([]types.ExamQuestion, 0, count)
	for idx := 0; idx < count; idx++ {
		q := pool[idx%len(pool)]
		q.ID = fmt.Sprintf("q%d", idx+1)
		out = append(out, sanitizeQuestion(rawQuestion{
			ID:      q.ID,
			Text:    q.Text,
			Options: q.Options,
			Answer:  q.Answer,
		}, idx))
	}
	return out
}
