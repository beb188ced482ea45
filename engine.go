package aksara

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// DefaultSystemPrompt is the built-in assistant persona: an Indonesian campus
// helpdesk agent that answers strictly from retrieved documents.
const DefaultSystemPrompt = `Kamu adalah asisten helpdesk kampus. Jawab pertanyaan pengguna HANYA berdasarkan dokumen yang kamu temukan melalui tool fetch_documents.

Aturan:
- Selalu panggil fetch_documents sebelum menjawab pertanyaan faktual.
- Jika dokumen tidak memuat jawabannya, katakan dengan jujur dan arahkan pengguna ke helpdesk@itb.ac.id.
- Jawab dalam bahasa yang sama dengan pertanyaan pengguna.
- Balas dengan objek JSON: {"answer": "...", "sources": [{"title": "...", "quote": "...", "source_url": "..."}]}.`

// fetchDocumentsTool is the single tool exposed to the model. Its arguments
// mirror fetchArgs.
var fetchDocumentsTool = ToolDefinition{
	Name:        "fetch_documents",
	Description: "Search the campus knowledge base. Returns the most relevant document passages for the query.",
	Parameters: json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "The search query, in the user's language."},
			"fan_out": {"type": "integer", "description": "How many query variants to search, including the original. Optional."}
		},
		"required": ["query"]
	}`),
}

// fetchArgs are the parsed arguments of a fetch_documents call.
type fetchArgs struct {
	Query  string `json:"query"`
	FanOut int    `json:"fan_out"`
}

// threadIDPattern bounds thread identifiers to a storage- and URL-safe alphabet.
var threadIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)

// maxMessageLen is the maximum accepted user message length in runes.
const maxMessageLen = 5000

// passageSep separates document passages inside a tool result message.
const passageSep = "<|source_sep|>"

// Hints carries optional caller-provided context for a request. A zero value
// means no hints.
type Hints struct {
	// Emotion, when set, skips classification and is used as-is.
	Emotion Emotion
}

// Result is the outcome of one processed request.
type Result struct {
	// Answer is always present; extraction degrades rather than fails.
	Answer AnswerPayload
	// Emotion is the classified (or hinted) tone of the user message.
	Emotion Emotion
	// Exhausted reports that the reasoning loop hit its step bound and the
	// answer came from forced synthesis.
	Exhausted bool
	// Variants lists the query variants searched, for observability.
	Variants []string
	Usage    Usage
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxSteps bounds the reasoning loop (default: 10 model calls).
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) { e.maxSteps = n }
}

// WithMaxHistory bounds how many prior turns are replayed to the model
// (default: 20). Older turns stay persisted but are not presented.
func WithMaxHistory(n int) EngineOption {
	return func(e *Engine) { e.maxHistory = n }
}

// WithLockWait sets how long a request waits for a thread's in-flight
// predecessor before failing with ErrConversationConflict (default: 10s).
func WithLockWait(d time.Duration) EngineOption {
	return func(e *Engine) { e.lockWait = d }
}

// WithDefaultFanOut sets the variant count used when the model omits fan_out
// from a fetch_documents call (default: 5).
func WithDefaultFanOut(n int) EngineOption {
	return func(e *Engine) { e.defaultFanOut = n }
}

// WithClassifier attaches an emotion classifier. Classification errors
// degrade to EmotionNeutral, never fail the request.
func WithClassifier(c Classifier) EngineOption {
	return func(e *Engine) { e.classifier = c }
}

// WithSystemPrompt replaces the built-in persona prompt.
func WithSystemPrompt(p string) EngineOption {
	return func(e *Engine) { e.prompt = p }
}

// WithLogger sets the structured logger. Default is a no-op logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithTracer sets the tracer for request and step spans.
func WithTracer(t Tracer) EngineOption {
	return func(e *Engine) { e.tracer = t }
}

// Engine runs the bounded retrieve-reason-answer loop over a Provider, a
// Retriever and a ConversationStore. One Engine serves many threads; requests
// on the same thread are serialized by a per-thread lock.
type Engine struct {
	provider      Provider
	retriever     *Retriever
	store         ConversationStore
	classifier    Classifier
	prompt        string
	maxSteps      int
	maxHistory    int
	defaultFanOut int
	lockWait      time.Duration
	logger        *slog.Logger
	tracer        Tracer
	locks         *threadLocks
	now           func() int64
}

// NewEngine creates an Engine with defaults: 10 reasoning steps, 20 replayed
// history turns, 10s lock wait, built-in persona prompt.
func NewEngine(provider Provider, retriever *Retriever, store ConversationStore, opts ...EngineOption) *Engine {
	e := &Engine{
		provider:   provider,
		retriever:  retriever,
		store:      store,
		prompt:     DefaultSystemPrompt,
		maxSteps:   10,
		maxHistory: 20,
		lockWait:   10 * time.Second,
		logger:     nopLogger,
		locks:      newThreadLocks(),
		now:        NowUnix,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Process handles one user message on the given thread: validate, serialize
// per thread, load history, classify tone, run the reasoning loop, persist
// the new turns, and return the extracted answer.
//
// Fatal errors are ErrInvalidInput, ErrConversationConflict, context
// cancellation, and provider failures that survive retry. Retrieval outages
// and classifier failures degrade instead.
func (e *Engine) Process(ctx context.Context, threadID, message string, hints Hints) (Result, error) {
	if !threadIDPattern.MatchString(threadID) {
		return Result{}, fmt.Errorf("%w: thread id must match %s", ErrInvalidInput, threadIDPattern)
	}
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return Result{}, fmt.Errorf("%w: empty message", ErrInvalidInput)
	}
	if len([]rune(trimmed)) > maxMessageLen {
		return Result{}, fmt.Errorf("%w: message exceeds %d characters", ErrInvalidInput, maxMessageLen)
	}

	if e.tracer != nil {
		var span Span
		ctx, span = e.tracer.Start(ctx, "engine.process",
			StringAttr("thread", threadID))
		defer span.End()
	}

	release, err := e.locks.acquire(ctx, threadID, e.lockWait)
	if err != nil {
		return Result{}, err
	}
	defer release()

	history, err := e.store.Load(ctx, threadID)
	if err != nil {
		return Result{}, fmt.Errorf("load conversation: %w", err)
	}
	history = TruncateHistory(history, e.maxHistory)

	emotion := e.classifyEmotion(ctx, trimmed, hints)

	messages := e.buildMessages(history, emotion, trimmed)

	res, newTurns, err := e.runLoop(ctx, threadID, messages, trimmed)
	if err != nil {
		return Result{}, err
	}
	res.Emotion = emotion

	// One atomic append per request: user turn, tool turns, agent turn.
	// A concurrent reader sees either none of them or all of them.
	if err := e.store.Append(ctx, threadID, newTurns); err != nil {
		return Result{}, fmt.Errorf("persist conversation: %w", err)
	}
	return res, nil
}

// classifyEmotion resolves the tone of the user message: caller hint first,
// then the classifier, then neutral. Classifier failure logs and degrades.
func (e *Engine) classifyEmotion(ctx context.Context, message string, hints Hints) Emotion {
	if hints.Emotion != "" {
		return hints.Emotion
	}
	if e.classifier == nil {
		return EmotionNeutral
	}
	emotion, err := e.classifier.Classify(ctx, message)
	if err != nil || emotion == "" {
		if err != nil {
			e.logger.Warn("emotion classification failed, defaulting to neutral", "error", err)
		}
		return EmotionNeutral
	}
	return emotion
}

// buildMessages assembles the model context: persona prompt, tone note,
// replayed history, then the new user message. Persisted tool turns replay as
// prefixed assistant messages since their call ids are not stored.
func (e *Engine) buildMessages(history []Turn, emotion Emotion, message string) []ChatMessage {
	messages := []ChatMessage{
		SystemMessage(e.prompt),
		SystemMessage("Emosi pengguna: " + string(emotion)),
	}
	for _, t := range history {
		switch t.Role {
		case RoleUser:
			messages = append(messages, UserMessage(t.Content))
		case RoleAgent:
			messages = append(messages, AssistantMessage(t.Content))
		case RoleTool:
			messages = append(messages, AssistantMessage("[hasil pencarian dokumen]\n"+t.Content))
		}
	}
	return append(messages, UserMessage(message))
}

// runLoop drives the bounded tool-calling loop and returns the result plus
// the turns to persist.
func (e *Engine) runLoop(ctx context.Context, threadID string, messages []ChatMessage, userMessage string) (Result, []Turn, error) {
	var totalUsage Usage
	var evidence []Evidence
	var variants []string
	newTurns := []Turn{{Role: RoleUser, Content: userMessage, CreatedAt: e.now()}}

	// One corrective retry for malformed tool arguments; a second malformed
	// call forces final synthesis instead of looping on a confused model.
	// That early exit is not step exhaustion and is reported separately.
	argRetried := false
	forcedByArgs := false

	for step := 0; step < e.maxSteps; step++ {
		// Checkpoint before every model call.
		if err := ctx.Err(); err != nil {
			return Result{}, nil, err
		}

		stepCtx := ctx
		var stepSpan Span
		if e.tracer != nil {
			stepCtx, stepSpan = e.tracer.Start(ctx, "engine.step",
				IntAttr("step", step))
		}
		endStep := func() {
			if stepSpan != nil {
				stepSpan.End()
			}
		}

		resp, err := e.provider.Chat(stepCtx, ChatRequest{
			Messages: messages,
			Tools:    []ToolDefinition{fetchDocumentsTool},
		})
		if err != nil {
			endStep()
			return Result{}, nil, err
		}
		totalUsage.InputTokens += resp.Usage.InputTokens
		totalUsage.OutputTokens += resp.Usage.OutputTokens

		if len(resp.ToolCalls) == 0 {
			endStep()
			newTurns = append(newTurns, Turn{Role: RoleAgent, Content: resp.Content, CreatedAt: e.now()})
			return Result{
				Answer:   Extract(resp.Content),
				Variants: variants,
				Usage:    totalUsage,
			}, newTurns, nil
		}

		if stepSpan != nil {
			stepSpan.SetAttr(IntAttr("tool_count", len(resp.ToolCalls)))
		}

		messages = append(messages, ChatMessage{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		forceFinal := false
		for _, tc := range resp.ToolCalls {
			content, gathered, vs, malformed := e.dispatchFetch(stepCtx, tc)
			if malformed {
				if argRetried {
					forceFinal = true
				}
				argRetried = true
			}
			evidence = append(evidence, gathered...)
			if len(vs) > 0 {
				variants = vs
			}
			messages = append(messages, ToolResultMessage(tc.ID, content))
			newTurns = append(newTurns, Turn{Role: RoleTool, Content: content, CreatedAt: e.now()})
		}
		endStep()

		if forceFinal {
			forcedByArgs = true
			break
		}
	}

	// Loop ended without a final answer: forced synthesis without tools.
	if forcedByArgs {
		e.logger.Warn("repeated malformed tool arguments, forcing synthesis", "thread", threadID)
	} else {
		e.logger.Warn("max reasoning steps reached, forcing synthesis",
			"thread", threadID, "steps", e.maxSteps)
	}

	synthCtx := ctx
	if e.tracer != nil {
		var synthSpan Span
		synthCtx, synthSpan = e.tracer.Start(ctx, "engine.synthesis",
			BoolAttr("forced", true))
		defer synthSpan.End()
	}

	if err := ctx.Err(); err != nil {
		return Result{}, nil, err
	}

	messages = append(messages, UserMessage(
		"Kamu telah menggunakan semua kesempatan pencarian. Rangkum apa yang kamu temukan dan jawab pertanyaan pengguna sekarang, tanpa memanggil tool lagi."))

	answer := e.synthesize(synthCtx, messages, evidence, &totalUsage)
	newTurns = append(newTurns, Turn{Role: RoleAgent, Content: answer.Answer, CreatedAt: e.now()})
	return Result{
		Answer:    answer,
		Exhausted: !forcedByArgs,
		Variants:  variants,
		Usage:     totalUsage,
	}, newTurns, nil
}

// dispatchFetch executes one fetch_documents call. It returns the tool result
// content, any gathered evidence, the searched variants, and whether the call
// was malformed (unknown tool or bad arguments).
//
// Retrieval outage is recovered into an explanatory result so the model can
// answer from what it already has.
func (e *Engine) dispatchFetch(ctx context.Context, tc ToolCall) (content string, gathered []Evidence, variants []string, malformed bool) {
	if tc.Name != fetchDocumentsTool.Name {
		return fmt.Sprintf("error: unknown tool %q, only fetch_documents is available", tc.Name), nil, nil, true
	}
	var args fetchArgs
	if err := json.Unmarshal(tc.Args, &args); err != nil || strings.TrimSpace(args.Query) == "" {
		return `error: invalid arguments, expected {"query": "..."} with a non-empty query`, nil, nil, true
	}

	if err := ctx.Err(); err != nil {
		return "error: " + err.Error(), nil, nil, false
	}

	fanOut := args.FanOut
	if fanOut <= 0 {
		fanOut = e.defaultFanOut
	}
	evidence, vs, err := e.retriever.Retrieve(ctx, args.Query, fanOut)
	if err != nil {
		if errors.Is(err, ErrRetrievalUnavailable) {
			e.logger.Warn("retrieval unavailable", "query", args.Query)
			return "error: pencarian dokumen sedang tidak tersedia, jawab dari informasi yang sudah ada", nil, vs, false
		}
		return "error: " + err.Error(), nil, vs, false
	}
	if len(evidence) == 0 {
		return "Tidak ada dokumen yang relevan ditemukan.", nil, vs, false
	}
	return formatEvidence(evidence), evidence, vs, false
}

// formatEvidence renders passages for the model, separated by passageSep so
// downstream parsing can split them back apart.
func formatEvidence(evidence []Evidence) string {
	parts := make([]string, len(evidence))
	for i, ev := range evidence {
		var b strings.Builder
		if title, ok := ev.Metadata["title"].(string); ok && title != "" {
			b.WriteString("Judul: " + title + "\n")
		}
		if url, ok := ev.Metadata["source_url"].(string); ok && url != "" {
			b.WriteString("Sumber: " + url + "\n")
		}
		b.WriteString(ev.Content)
		parts[i] = b.String()
	}
	return strings.Join(parts, "\n"+passageSep+"\n")
}

// synthesize produces the forced final answer. A provider failure or empty
// response falls back to a locally built degraded answer so the request
// still returns something grounded in the gathered evidence.
func (e *Engine) synthesize(ctx context.Context, messages []ChatMessage, evidence []Evidence, usage *Usage) AnswerPayload {
	resp, err := e.provider.Chat(ctx, ChatRequest{Messages: messages})
	if err == nil {
		usage.InputTokens += resp.Usage.InputTokens
		usage.OutputTokens += resp.Usage.OutputTokens
		if payload := Extract(resp.Content); payload.Answer != "" {
			return payload
		}
	} else {
		e.logger.Warn("forced synthesis failed, building degraded answer", "error", err)
	}
	return degradedAnswer(evidence)
}

// degradedAnswer builds a best-effort answer straight from evidence when the
// model cannot produce one. Always non-empty.
func degradedAnswer(evidence []Evidence) AnswerPayload {
	if len(evidence) == 0 {
		return AnswerPayload{
			Answer:  "Maaf, saya tidak dapat menemukan jawaban saat ini. Silakan hubungi helpdesk@itb.ac.id.",
			Sources: []Source{},
		}
	}
	var b strings.Builder
	b.WriteString("Berikut informasi yang berhasil saya temukan:\n")
	sources := make([]Source, 0, len(evidence))
	for i, ev := range evidence {
		if i >= 3 {
			break
		}
		b.WriteString("- " + snippet(ev.Content, 300) + "\n")
		src := Source{Quote: snippet(ev.Content, 160)}
		if title, ok := ev.Metadata["title"].(string); ok {
			src.Title = title
		}
		if url, ok := ev.Metadata["source_url"].(string); ok {
			src.SourceURL = url
		}
		sources = append(sources, src)
	}
	return AnswerPayload{Answer: strings.TrimSpace(b.String()), Sources: sources}
}

// snippet truncates s to n runes.
func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
