package generator

import (
	"context"
	"time"

	"jlpt-listening/config"
	"jlpt-listening/internal/core/llm"
	"jlpt-listening/internal/core/question"
	"jlpt-listening/internal/core/vectorstore"
	"jlpt-listening/pkg/logger"
)

const (
	defaultTopic     = "General"
	notProvided      = "(not provided)"
	FeedbackApology  = "Unable to generate feedback at this time."
	defaultExemplars = 2
)

// Retriever is the slice of the vector store the generator needs.
type Retriever interface {
	QuerySimilar(ctx context.Context, text string, section *int, n int) ([]vectorstore.Hit, error)
	Store(ctx context.Context, questions []question.Question, section int) ([]string, error)
}

// Recorder is the slice of the history store the generator needs.
type Recorder interface {
	Add(ctx context.Context, q question.Question, section int, topic string) int
}

// Source tells a caller where a returned question came from.
type Source string

const (
	SourceDefault   Source = "default"
	SourceGenerated Source = "generated"
	SourceDegraded  Source = "degraded"
)

// Generation is the outcome of one Generate call. HistoryID is set once the
// question reaches the history log (history.FailedID if persisting failed).
type Generation struct {
	Question  question.Question `json:"question"`
	Source    Source            `json:"source"`
	Parser    string            `json:"parser,omitempty"`
	HistoryID *int              `json:"history_id,omitempty"`
	VectorIDs []string          `json:"vector_ids,omitempty"`
}

type Generator struct {
	store     Retriever
	history   Recorder
	chat      llm.ChatClient
	params    llm.Params
	exemplars int
	parsers   []Parser
	now       func() time.Time
}

type Option func(*Generator)

func WithParams(p llm.Params) Option {
	return func(g *Generator) { g.params = p }
}

func WithExemplars(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.exemplars = n
		}
	}
}

func WithParsers(parsers []Parser) Option {
	return func(g *Generator) {
		if len(parsers) > 0 {
			g.parsers = parsers
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func New(store Retriever, history Recorder, chat llm.ChatClient, opts ...Option) *Generator {
	g := &Generator{
		store:     store,
		history:   history,
		chat:      chat,
		params:    llm.DefaultParams(),
		exemplars: config.Cfg.Generation.Exemplars,
		parsers:   DefaultParsers,
		now:       time.Now,
	}
	if g.exemplars <= 0 {
		g.exemplars = defaultExemplars
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces a new practice question. It always returns a question
// with the three text fields set: the section default when retrieval finds
// nothing, otherwise the first parser strategy that accepts the model output.
// Parsed questions are stored only when section is given.
func (g *Generator) Generate(ctx context.Context, section *int, topic string) Generation {
	hits, err := g.store.QuerySimilar(ctx, retrievalQuery(topic), section, g.exemplars)
	if err != nil {
		logger.Error(err, "%v: exemplar query failed, using default question", config.ModuleGenerator)
	}
	if len(hits) == 0 {
		logger.Info("%v: no exemplars found, returning default question", config.ModuleGenerator)
		return Generation{Question: DefaultQuestion(section), Source: SourceDefault}
	}

	raw, err := g.chat.Complete(ctx, llm.UserPrompt(questionPrompt(hits[0].Question, section, topic)), g.params)
	if err != nil {
		logger.Error(err, "%v: question generation failed", config.ModuleGenerator)
		raw = ""
	}

	q, p := parse(g.parsers, raw)
	q.Topic = topic
	q.Timestamp = g.now().Format(question.TimestampLayout)

	out := Generation{Question: q, Source: SourceGenerated, Parser: p.Name}
	if p.Degraded {
		out.Source = SourceDegraded
		logger.Warn("%v: model output could not be parsed, returning placeholder", config.ModuleGenerator)
		return out
	}
	if section == nil {
		return out
	}

	out.Question.Section = *section
	g.record(ctx, &out, *section, topic)
	return out
}

func (g *Generator) record(ctx context.Context, out *Generation, section int, topic string) {
	ids, err := g.store.Store(ctx, []question.Question{out.Question}, section)
	if err != nil {
		logger.Error(err, "%v: error storing generated question", config.ModuleGenerator)
	} else {
		out.VectorIDs = ids
	}

	if topic == "" {
		topic = defaultTopic
	}
	if g.history == nil {
		return
	}
	id := g.history.Add(ctx, out.Question, section, topic)
	out.HistoryID = &id
}

// Feedback asks the model to grade userAnswer (a 1-based option index) against
// q, using similar stored questions as context. Any failure yields
// FeedbackApology.
func (g *Generator) Feedback(ctx context.Context, q question.Question, userAnswer string) string {
	hits, err := g.store.QuerySimilar(ctx, q.Introduction+" "+q.Conversation, nil, g.exemplars)
	if err != nil {
		logger.Error(err, "%v: error retrieving similar questions for feedback", config.ModuleGenerator)
		return FeedbackApology
	}

	similar := make([]question.Question, 0, len(hits))
	for _, h := range hits {
		similar = append(similar, h.Question)
	}

	student := userAnswer
	if q.Options != nil {
		if opt, err := q.OptionForAnswer(userAnswer); err == nil {
			student = opt
		} else {
			logger.Warn("%v: %v", config.ModuleGenerator, err)
		}
	}
	correct, ok := q.CorrectOption()
	if !ok {
		correct = notProvided
	}

	text, err := g.chat.Complete(ctx, llm.UserPrompt(feedbackPrompt(q, student, correct, similar)), g.params)
	if err != nil {
		logger.Error(err, "%v: error generating feedback", config.ModuleGenerator)
		return FeedbackApology
	}
	return text
}
