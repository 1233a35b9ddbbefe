package main

import (
	"context"
	"log/slog"
	"net/smtp"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/shaid-7908/display-doctor-v2/internal/app"
	"github.com/shaid-7908/display-doctor-v2/internal/invoices"
	"github.com/shaid-7908/display-doctor-v2/internal/issues"
	jobmetrics "github.com/shaid-7908/display-doctor-v2/internal/jobs"
	"github.com/shaid-7908/display-doctor-v2/internal/platform/db"
	"github.com/shaid-7908/display-doctor-v2/internal/reports"
	"github.com/shaid-7908/display-doctor-v2/internal/shared"
	"github.com/shaid-7908/display-doctor-v2/jobs"
	"github.com/shaid-7908/display-doctor-v2/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := jobmetrics.NewMetrics(nil)

	var smtpAuth smtp.Auth
	if cfg.SMTPUser != "" {
		smtpAuth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost)
	}
	mailer := &jobs.SMTPMailer{
		Addr: cfg.SMTPHost + ":" + strconv.Itoa(cfg.SMTPPort),
		From: cfg.SMTPFrom,
		Auth: smtpAuth,
	}
	mailJob := &jobs.MailJob{Mailer: mailer, Logger: logger}

	// The worker only reads invoices, so the mutation-side collaborators of
	// the invoice service stay unset here.
	auditLogger := shared.NewAuditLogger(pool)
	approvalRecorder := shared.NewApprovalRecorder(pool, logger)
	issuesService := issues.NewService(issues.NewRepository(pool), nil, auditLogger, nil)
	reportsService := reports.NewService(reports.NewRepository(pool), issuesService, approvalRecorder, auditLogger)
	invoicesService := invoices.NewService(invoices.NewRepository(pool), issuesService, reportsService, shared.NewIdempotencyStore(pool), auditLogger, nil)
	renderer := invoices.NewPDFRenderer(report.NewClient(cfg.GotenbergURL), invoicesService)
	pdfJob := &jobs.InvoicePDFJob{
		Renderer: renderer,
		Dir:      cfg.InvoicePDFDir,
		Logger:   logger,
		Metrics:  metrics,
	}

	slaJob := jobs.NewSLAScanJob(pool, logger, metrics)

	slaTask, err := jobs.NewSLAScanTask(jobs.SLAScanPayload{StaleAfterHours: cfg.SLAStaleAfterHours})
	if err != nil {
		logger.Error("build sla task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: mailJob.Handle},
			{Type: jobs.TaskTypeInvoicePDF, Handler: pdfJob.Handle},
			{Type: jobs.TaskTypeSLAScan, Handler: slaJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SLAScanCron, Task: slaTask, Options: []asynq.Option{asynq.MaxRetry(2)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
