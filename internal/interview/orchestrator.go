// Package interview drives a single interview session through its phases.
package interview

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/interviewer/internal/catalog"
	"github.com/ashureev/interviewer/internal/domain"
	"github.com/ashureev/interviewer/internal/focusguard"
	"github.com/ashureev/interviewer/internal/history"
	"github.com/ashureev/interviewer/internal/metrics"
	"github.com/ashureev/interviewer/internal/report"
	"github.com/ashureev/interviewer/internal/runner"
)

// Fixed conversation texts.
const (
	bypassPhrase        = "практика от витуса"
	bypassNotice        = "Режим практики активирован: уровень Middle, язык Python. Откройте задачу, когда будете готовы."
	nextTaskPrefix      = "✅ Отлично! Переходим к новой задаче:\n\n"
	codeAnalysisTurn    = "[анализ кода]"
	dialogueFailureText = "Ошибка сервера."
	runnerFailureText   = "Ошибка запуска кода"
)

// Default timeouts for remote calls.
const (
	DefaultCallTimeout  = 90 * time.Second
	DefaultResetTimeout = 5 * time.Second
)

// Dialogue is the remote interviewer as seen by a session.
type Dialogue interface {
	Ask(ctx context.Context, userID, sessionID, message string) (string, error)
	ResetSession(ctx context.Context, userID, sessionID string) error
}

// Recorder persists completed interviews.
type Recorder interface {
	Append(ctx context.Context, owner string, c history.Completion) (domain.SessionRecord, error)
}

// TaskSource provides catalog tasks.
type TaskSource interface {
	Random() domain.Task
	Get(id string) (catalog.Entry, bool)
}

// Deps are the collaborators shared by all sessions.
type Deps struct {
	Dialogue        Dialogue
	Runner          runner.Runner
	Recorder        Recorder
	Tasks           TaskSource
	Logger          *slog.Logger
	WarningDuration time.Duration
	CallTimeout     time.Duration
	ResetTimeout    time.Duration
}

// Snapshot is an immutable view of a session for rendering.
type Snapshot struct {
	Version       uint64                  `json:"version"`
	Phase         domain.Phase            `json:"phase"`
	Level         domain.Level            `json:"level,omitempty"`
	Language      domain.Language         `json:"language,omitempty"`
	Transcript    []domain.ChatTurn       `json:"transcript"`
	InFlight      bool                    `json:"in_flight"`
	TaskPanelOpen bool                    `json:"task_panel_open"`
	CurrentTask   *domain.Task            `json:"current_task,omitempty"`
	Code          string                  `json:"code,omitempty"`
	Run           *domain.RunOutcome      `json:"run,omitempty"`
	Result        *domain.InterviewResult `json:"result,omitempty"`
	Focus         focusguard.State        `json:"focus"`
}

// Orchestrator owns the state of one interview session. At most one remote
// call is outstanding at a time; responses that arrive after a reset or a
// lockout are discarded.
type Orchestrator struct {
	userID    string
	sessionID string
	deps      Deps
	logger    *slog.Logger
	metrics   *metrics.Metrics
	guard     *focusguard.Guard

	mu         sync.Mutex
	version    uint64
	gen        uint64
	phase      domain.Phase
	level      domain.Level
	language   domain.Language
	transcript *domain.Transcript
	inFlight   bool
	running    bool
	panelOpen  bool
	task       *domain.Task
	code       string
	run        *domain.RunOutcome
	result     *domain.InterviewResult
	lastActive time.Time

	listenersMu sync.Mutex
	listeners   map[int]func(Snapshot)
	nextID      int
}

// New creates an orchestrator in the Intro phase.
func New(userID, sessionID string, deps Deps) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.CallTimeout <= 0 {
		deps.CallTimeout = DefaultCallTimeout
	}
	if deps.ResetTimeout <= 0 {
		deps.ResetTimeout = DefaultResetTimeout
	}

	o := &Orchestrator{
		userID:     userID,
		sessionID:  sessionID,
		deps:       deps,
		logger:     deps.Logger.With("user_id", userID, "session_id", sessionID),
		metrics:    metrics.Default(),
		phase:      domain.PhaseIntro,
		transcript: &domain.Transcript{},
		lastActive: time.Now(),
		listeners:  make(map[int]func(Snapshot)),
	}
	o.guard = focusguard.New(deps.WarningDuration, o.onGuardChange)
	return o
}

// Subscribe registers fn to receive a snapshot after every state change.
// The returned function removes the subscription.
func (o *Orchestrator) Subscribe(fn func(Snapshot)) func() {
	o.listenersMu.Lock()
	id := o.nextID
	o.nextID++
	o.listeners[id] = fn
	o.listenersMu.Unlock()

	return func() {
		o.listenersMu.Lock()
		delete(o.listeners, id)
		o.listenersMu.Unlock()
	}
}

// Snapshot returns the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// LastActive returns the time of the last command.
func (o *Orchestrator) LastActive() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastActive
}

// Close cancels pending timers.
func (o *Orchestrator) Close() {
	o.guard.Stop()
}

// SubmitUtterance sends free text from the candidate.
func (o *Orchestrator) SubmitUtterance(ctx context.Context, text string) (Snapshot, error) {
	o.mu.Lock()
	if err := o.admitLocked("submit"); err != nil {
		o.mu.Unlock()
		return Snapshot{}, err
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		o.mu.Unlock()
		return Snapshot{}, o.reject("submit", ErrBlankInput)
	}

	if strings.ToLower(trimmed) == bypassPhrase {
		o.level = domain.LevelMiddle
		o.language = domain.LanguagePython
		o.transcript.AppendUser(text, false)
		o.transcript.AppendBot(bypassNotice)
		o.transcript.AppendOffer(o.deps.Tasks.Random())
		o.setPhaseLocked(domain.PhasePracticeConfirm)
		return o.commitLocked(), nil
	}

	if o.phase == domain.PhaseIntro && o.transcript.Len() == 0 {
		o.setPhaseLocked(domain.PhaseLevelSelect)
		return o.commitLocked(), nil
	}

	turn := o.transcript.AppendUser(text, true)
	call := o.beginCallLocked()

	answer, err := o.ask(ctx, text)

	o.mu.Lock()
	if !o.endCallLocked(call, turn) {
		return o.commitLocked(), nil
	}
	if err != nil {
		o.transcript.SetBot(turn, dialogueFailureText)
		return o.commitLocked(), nil
	}

	o.transcript.SetBot(turn, answer)
	if report.HasLiveCodeMarker(answer) {
		o.setPhaseLocked(domain.PhaseLanguageSelect)
	}
	var completion *history.Completion
	if report.IsFinalReport(answer) {
		completion = o.finishLocked(answer, nil)
	}
	snap := o.commitLocked()
	o.record(ctx, completion)
	return snap, nil
}

// SelectLevel records the chosen difficulty and moves to language selection.
func (o *Orchestrator) SelectLevel(ctx context.Context, level domain.Level) (Snapshot, error) {
	if !level.Valid() {
		return Snapshot{}, o.reject("select_level", ErrInvalidLevel)
	}

	o.mu.Lock()
	if err := o.admitPhaseLocked("select_level", domain.PhaseLevelSelect); err != nil {
		o.mu.Unlock()
		return Snapshot{}, err
	}

	o.level = level
	turn := o.transcript.AppendUser("Уровень "+level.Name(), true)
	call := o.beginCallLocked()

	answer, err := o.ask(ctx, fmt.Sprintf("Выбираю уровень %d", int(level)))

	o.mu.Lock()
	if !o.endCallLocked(call, turn) {
		return o.commitLocked(), nil
	}
	if err != nil {
		o.transcript.SetBot(turn, dialogueFailureText)
		return o.commitLocked(), nil
	}
	o.transcript.SetBot(turn, answer)
	o.setPhaseLocked(domain.PhaseLanguageSelect)
	return o.commitLocked(), nil
}

// SelectLanguage records the chosen language and moves to practice confirmation.
func (o *Orchestrator) SelectLanguage(ctx context.Context, lang string) (Snapshot, error) {
	language, err := domain.ParseLanguage(lang)
	if err != nil {
		return Snapshot{}, o.reject("select_language", ErrInvalidLanguage)
	}

	o.mu.Lock()
	if err := o.admitPhaseLocked("select_language", domain.PhaseLanguageSelect); err != nil {
		o.mu.Unlock()
		return Snapshot{}, err
	}

	o.language = language
	turn := o.transcript.AppendUser("Язык: "+string(language), true)
	call := o.beginCallLocked()

	answer, callErr := o.ask(ctx, "Выбираю язык программирования: "+string(language))

	o.mu.Lock()
	if !o.endCallLocked(call, turn) {
		return o.commitLocked(), nil
	}
	if callErr != nil {
		o.transcript.SetBot(turn, dialogueFailureText)
		return o.commitLocked(), nil
	}
	o.transcript.SetBot(turn, answer)
	o.setPhaseLocked(domain.PhasePracticeConfirm)
	return o.commitLocked(), nil
}

// OpenTask opens the task panel with the task's starter code.
func (o *Orchestrator) OpenTask(task domain.Task) (Snapshot, error) {
	o.mu.Lock()
	if o.lockedLocked() {
		o.mu.Unlock()
		return Snapshot{}, o.reject("open_task", ErrLockedOut)
	}
	if o.running {
		o.mu.Unlock()
		return Snapshot{}, o.reject("open_task", ErrBusy)
	}
	o.lastActive = time.Now()

	o.task = &task
	o.code = task.StarterCode
	o.run = nil
	o.panelOpen = true
	return o.commitLocked(), nil
}

// OpenTaskByID opens a task offered in the transcript or, failing that,
// a catalog task.
func (o *Orchestrator) OpenTaskByID(taskID string) (Snapshot, error) {
	o.mu.Lock()
	task, ok := o.transcript.FindOffer(taskID)
	o.mu.Unlock()

	if !ok {
		entry, found := o.deps.Tasks.Get(taskID)
		if !found {
			return Snapshot{}, o.reject("open_task", ErrUnknownTask)
		}
		task = entry.Task()
	}
	return o.OpenTask(task)
}

// CloseTaskPanel hides the task panel without discarding the task.
func (o *Orchestrator) CloseTaskPanel() Snapshot {
	o.mu.Lock()
	o.lastActive = time.Now()
	o.panelOpen = false
	return o.commitLocked()
}

// RunCode submits source for the open task.
func (o *Orchestrator) RunCode(ctx context.Context, source string) (Snapshot, error) {
	o.mu.Lock()
	if !o.panelOpen || o.task == nil {
		o.mu.Unlock()
		return Snapshot{}, o.reject("run_code", ErrNoTask)
	}
	if err := o.admitLocked("run_code"); err != nil {
		o.mu.Unlock()
		return Snapshot{}, err
	}

	task := *o.task
	lang := o.language
	o.code = source
	o.run = &domain.RunOutcome{Pending: true}
	o.running = true
	call := o.beginCallLocked()

	res, err := o.execute(ctx, source, task.ID, lang)

	o.mu.Lock()
	if !o.endCallLocked(call, -1) {
		return o.commitLocked(), nil
	}
	if err != nil {
		passed := false
		o.run = &domain.RunOutcome{Passed: &passed, CaseMessages: []string{runnerFailureText}}
		return o.commitLocked(), nil
	}

	feedback := res.LLMFeedback
	if feedback != "" {
		o.transcript.AppendExchange(codeAnalysisTurn, feedback)
	}

	var completion *history.Completion
	switch {
	case res.NextTask != nil:
		next := res.NextTask.Task()
		o.panelOpen = false
		o.task = nil
		o.code = ""
		o.run = nil
		o.transcript.AppendBot(nextTaskPrefix + next.Description)
		o.transcript.AppendOffer(next)
	case res.IsFinal || report.IsFinalReport(feedback):
		passed := res.Success
		o.run = &domain.RunOutcome{Passed: &passed, CaseMessages: res.Results, IsFinal: true}
		o.panelOpen = false
		completion = o.finishLocked(feedback, &task)
	default:
		passed := res.Success
		outcome := &domain.RunOutcome{Passed: &passed, CaseMessages: res.Results}
		if feedback != "" {
			outcome.ModelFeedback = &feedback
		}
		o.run = outcome
	}

	snap := o.commitLocked()
	o.record(ctx, completion)
	return snap, nil
}

// Reset abandons the session and returns to Intro. The remote reset is best
// effort; its failure is logged and otherwise ignored.
func (o *Orchestrator) Reset(ctx context.Context) Snapshot {
	o.mu.Lock()
	o.lastActive = time.Now()
	o.gen++
	o.inFlight = false
	o.running = false
	o.level = 0
	o.language = ""
	o.transcript = &domain.Transcript{}
	o.panelOpen = false
	o.task = nil
	o.code = ""
	o.run = nil
	o.result = nil
	o.guard.Reset()
	o.setPhaseLocked(domain.PhaseIntro)
	snap := o.commitLocked()

	resetCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.deps.ResetTimeout)
	defer cancel()
	if err := o.deps.Dialogue.ResetSession(resetCtx, o.userID, o.sessionID); err != nil {
		o.logger.Warn("Remote reset failed, continuing with local reset", "error", err)
	}
	return snap
}

// Resume replays a stored interview transcript and continues in the coding phase.
func (o *Orchestrator) Resume(record domain.SessionRecord) (Snapshot, error) {
	o.mu.Lock()
	if err := o.admitLocked("resume"); err != nil {
		o.mu.Unlock()
		return Snapshot{}, err
	}

	o.gen++
	o.transcript = domain.NewTranscript(record.FullTranscript)
	o.panelOpen = false
	o.task = nil
	o.code = ""
	o.run = nil
	o.result = nil
	o.setPhaseLocked(domain.PhaseCoding)
	return o.commitLocked(), nil
}

// FocusLost reports that the candidate left the interview window.
func (o *Orchestrator) FocusLost() Snapshot {
	o.mu.Lock()
	guarded := o.phase.Guarded() && o.panelOpen
	prev := o.guard.State()
	state := o.guard.FocusLost(guarded)

	switch {
	case state.LockedOut && !prev.LockedOut:
		o.metrics.FocusViolations.WithLabelValues("locked").Inc()
		o.logger.Warn("Session locked out after repeated focus loss", "violations", state.ViolationCount)
		o.setPhaseLocked(domain.PhaseAborted)
	case state.ViolationCount > prev.ViolationCount:
		o.metrics.FocusViolations.WithLabelValues("warned").Inc()
		o.logger.Info("Focus loss warning issued")
	}
	return o.commitLocked()
}

// admitLocked rejects commands while a call is in flight or the focus guard
// blocks input.
func (o *Orchestrator) admitLocked(command string) error {
	if o.inFlight {
		return o.reject(command, ErrBusy)
	}
	if o.lockedLocked() {
		return o.reject(command, ErrLockedOut)
	}
	if o.guard.State().WarningActive {
		return o.reject(command, ErrWarningActive)
	}
	o.lastActive = time.Now()
	return nil
}

func (o *Orchestrator) admitPhaseLocked(command string, want domain.Phase) error {
	if err := o.admitLocked(command); err != nil {
		return err
	}
	if o.phase != want {
		return o.reject(command, ErrWrongPhase)
	}
	return nil
}

func (o *Orchestrator) lockedLocked() bool {
	return o.phase == domain.PhaseAborted || o.guard.State().LockedOut
}

func (o *Orchestrator) reject(command string, err error) error {
	o.metrics.CommandRejections.WithLabelValues(command, reasonOf(err)).Inc()
	o.logger.Debug("Command rejected", "command", command, "reason", err)
	return err
}

// beginCallLocked marks a call in flight, publishes the pending state and
// releases the lock. It returns the generation the call belongs to.
func (o *Orchestrator) beginCallLocked() uint64 {
	o.inFlight = true
	gen := o.gen
	o.commitLocked()
	return gen
}

// endCallLocked re-validates the session when a call returns. It reports
// false, after settling the pending turn, if the response must be dropped.
// On false with a stale generation nothing of the new session is touched.
func (o *Orchestrator) endCallLocked(gen uint64, turn int) bool {
	if gen != o.gen {
		o.logger.Info("Discarding response for a reset session")
		return false
	}
	o.inFlight = false
	o.running = false
	if o.lockedLocked() {
		o.logger.Info("Discarding response for a locked-out session")
		if turn >= 0 {
			o.transcript.Settle(turn)
		}
		o.run = nil
		return false
	}
	return true
}

func (o *Orchestrator) ask(ctx context.Context, message string) (string, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.deps.CallTimeout)
	defer cancel()
	return o.deps.Dialogue.Ask(callCtx, o.userID, o.sessionID, message)
}

func (o *Orchestrator) execute(ctx context.Context, code, taskID string, lang domain.Language) (runner.Result, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.deps.CallTimeout)
	defer cancel()
	res, err := o.deps.Runner.Run(callCtx, runner.Request{
		Code:      code,
		TaskID:    taskID,
		Language:  lang,
		UserID:    o.userID,
		SessionID: o.sessionID,
	})
	if err != nil {
		o.logger.Warn("Code run failed", "task_id", taskID, "error", err)
	}
	return res, err
}

// finishLocked parses the final report and enters Results. It returns the
// completion to persist, or nil if the session already finished.
func (o *Orchestrator) finishLocked(text string, task *domain.Task) *history.Completion {
	if o.phase == domain.PhaseResults {
		return nil
	}
	result := report.Parse(text)
	o.result = &result
	o.setPhaseLocked(domain.PhaseResults)
	return &history.Completion{
		Transcript: o.transcript.Turns(),
		Result:     result,
		Task:       task,
		Violations: o.guard.State().ViolationCount,
	}
}

func (o *Orchestrator) record(ctx context.Context, c *history.Completion) {
	if c == nil || o.deps.Recorder == nil {
		return
	}
	if _, err := o.deps.Recorder.Append(context.WithoutCancel(ctx), o.userID, *c); err != nil {
		o.logger.Error("Failed to record interview", "error", err)
	}
}

func (o *Orchestrator) setPhaseLocked(to domain.Phase) {
	if o.phase == to {
		return
	}
	o.metrics.PhaseTransitions.WithLabelValues(string(o.phase), string(to)).Inc()
	o.logger.Info("Phase transition", "from", o.phase, "to", to)
	o.phase = to
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	snap := Snapshot{
		Version:       o.version,
		Phase:         o.phase,
		Level:         o.level,
		Language:      o.language,
		Transcript:    o.transcript.Turns(),
		InFlight:      o.inFlight,
		TaskPanelOpen: o.panelOpen,
		Code:          o.code,
		Focus:         o.guard.State(),
	}
	if o.task != nil {
		task := *o.task
		snap.CurrentTask = &task
	}
	if o.run != nil {
		run := *o.run
		snap.Run = &run
	}
	if o.result != nil {
		result := *o.result
		snap.Result = &result
	}
	return snap
}

// commitLocked bumps the version, releases the lock and notifies
// subscribers. It must be called with o.mu held.
func (o *Orchestrator) commitLocked() Snapshot {
	o.version++
	snap := o.snapshotLocked()
	o.mu.Unlock()
	o.emit(snap)
	return snap
}

func (o *Orchestrator) onGuardChange(focusguard.State) {
	o.mu.Lock()
	o.commitLocked()
}

func (o *Orchestrator) emit(snap Snapshot) {
	o.listenersMu.Lock()
	fns := make([]func(Snapshot), 0, len(o.listeners))
	for _, fn := range o.listeners {
		fns = append(fns, fn)
	}
	o.listenersMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
