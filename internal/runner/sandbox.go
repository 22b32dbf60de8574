package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/interviewer/internal/catalog"
	"github.com/ashureev/interviewer/internal/container"
	"github.com/ashureev/interviewer/internal/domain"
	"github.com/ashureev/interviewer/internal/metrics"
	"github.com/ashureev/interviewer/internal/report"
)

// DefaultCaseTimeout bounds a single test case execution.
const DefaultCaseTimeout = 3 * time.Second

// Reviewer asks the interviewer to comment on a run.
type Reviewer interface {
	Ask(ctx context.Context, userID, sessionID, message string) (string, error)
}

// TaskLookup resolves catalog entries with their test cases.
type TaskLookup interface {
	Get(id string) (catalog.Entry, bool)
}

// Sandbox runs catalog test cases locally in isolated containers.
type Sandbox struct {
	mgr         container.Manager
	tasks       TaskLookup
	reviewer    Reviewer
	caseTimeout time.Duration
	logger      *slog.Logger
}

// SandboxConfig configures a Sandbox.
type SandboxConfig struct {
	CaseTimeout time.Duration
	// Reviewer, when non-nil, is asked for feedback on every run.
	Reviewer Reviewer
}

// NewSandbox creates a sandbox runner.
func NewSandbox(mgr container.Manager, tasks TaskLookup, cfg SandboxConfig, logger *slog.Logger) *Sandbox {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CaseTimeout <= 0 {
		cfg.CaseTimeout = DefaultCaseTimeout
	}
	return &Sandbox{
		mgr:         mgr,
		tasks:       tasks,
		reviewer:    cfg.Reviewer,
		caseTimeout: cfg.CaseTimeout,
		logger:      logger,
	}
}

// Run evaluates every test case of the task against the submitted code.
func (s *Sandbox) Run(ctx context.Context, req Request) (res Result, err error) {
	start := time.Now()
	defer func() { metrics.Default().ObserveRemoteCall("sandbox", "run", start, err) }()

	if !sandboxLanguage(req.Language) {
		s.logger.Info("Sandbox cannot run language", "language", req.Language, "task_id", req.TaskID)
		return Result{Success: false, Results: []string{unsupportedLanguageMessage(req.Language)}}, nil
	}

	entry, ok := s.tasks.Get(req.TaskID)
	if !ok {
		return Result{Success: false, Results: []string{"Неизвестная задача: " + req.TaskID}}, nil
	}
	if len(entry.Tests) == 0 {
		res = Result{Success: true, Results: []string{"Нет автотестов — ручная проверка."}}
		s.review(ctx, req, &res)
		return res, nil
	}

	res.Success = true
	for _, tc := range entry.Tests {
		exec, err := s.mgr.RunScript(ctx, harnessScript(req.Code, tc), s.caseTimeout)
		if err != nil {
			return Result{}, fmt.Errorf("run case %q: %w", tc.Expr, err)
		}
		line, passed := caseLine(tc, exec)
		res.Results = append(res.Results, line)
		res.Success = res.Success && passed
	}

	s.logger.Info("Sandbox run finished",
		"task_id", req.TaskID, "session_id", req.SessionID,
		"success", res.Success, "cases", len(entry.Tests))

	s.review(ctx, req, &res)
	return res, nil
}

// review attaches interviewer feedback and any follow-up task.
// Review failures leave the run result untouched.
func (s *Sandbox) review(ctx context.Context, req Request, res *Result) {
	if s.reviewer == nil {
		return
	}

	feedback, err := s.reviewer.Ask(ctx, req.UserID, req.SessionID, reviewPrompt(req, *res))
	if err != nil {
		s.logger.Warn("Sandbox review failed", "task_id", req.TaskID, "error", err)
		return
	}

	res.LLMFeedback = feedback
	res.NextTask = ParseTaskBlock(feedback)
	res.IsFinal = res.NextTask == nil && report.IsFinalReport(feedback)
}

func reviewPrompt(req Request, res Result) string {
	status := "не пройдены"
	if res.Success {
		status = "пройдены"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Результаты проверки решения задачи %s: тесты %s.\n", req.TaskID, status)
	for _, line := range res.Results {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "\nКод кандидата:\n```%s\n", fenceLanguage(req.Language))
	b.WriteString(req.Code)
	b.WriteString("\n```")
	return b.String()
}

// The sandbox harness is Python only. An unset language means Python.
func sandboxLanguage(lang domain.Language) bool {
	return lang == "" || lang == domain.LanguagePython
}

func unsupportedLanguageMessage(lang domain.Language) string {
	return fmt.Sprintf("Язык %s не поддерживается песочницей, доступен только %s.", lang, domain.LanguagePython)
}

func fenceLanguage(lang domain.Language) string {
	if lang == "" {
		return string(domain.LanguagePython)
	}
	return string(lang)
}
