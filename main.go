package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	locators "jobdroid/Locators"
	"jobdroid/config"
	"jobdroid/droid"
	"jobdroid/model"
	"jobdroid/repository"
	"jobdroid/service"
	"jobdroid/utils"
	"jobdroid/worker"
	"jobdroid/worker/email"
	"jobdroid/worker/indeed"
	"jobdroid/worker/linkedin"
	"jobdroid/worker/naukri"
	"jobdroid/worker/unstop"
	"jobdroid/worker/whatsapp"
)

const version = "1.0.0"

type Application struct {
	configPath string
	dryRun     bool
	loop       bool

	cfg     *config.GlobalConfig
	db      *gorm.DB
	repo    repository.JobRecordRepository
	tracker *service.TrackerService
	matcher *service.MatcherService
	resume  *service.ResumeService
	ai      *service.AiService
	device  *droid.DeviceManager
	session *service.SessionService

	cancel context.CancelFunc
	done   chan struct{}
}

func NewApplication(configPath string, dryRun, loop bool) *Application {
	return &Application{
		configPath: configPath,
		dryRun:     dryRun,
		loop:       loop,
		done:       make(chan struct{}),
	}
}

// InitDatabase opens the history database and migrates the schema.
func (app *Application) InitDatabase() error {
	log.Info("Opening history database...")

	db, err := gorm.Open(sqlite.Open(app.cfg.Tracking.DatabasePath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("open database %s: %w", app.cfg.Tracking.DatabasePath, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("access database pool: %w", err)
	}
	// sqlite allows one writer at a time.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&model.JobRecord{}); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	app.db = db
	log.Infof("History database ready at %s", app.cfg.Tracking.DatabasePath)
	return nil
}

// InitServices wires configuration, storage, the LLM backend, the
// device manager and the platform agents together.
func (app *Application) InitServices(ctx context.Context) error {
	log.Info("========================================")
	log.Info("   Initializing services")
	log.Info("========================================")

	cfg, err := config.InitConfig(app.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	app.cfg = cfg
	log.Infof("Loaded configuration from %s", app.configPath)
	if app.dryRun {
		log.Warn("Dry-run mode: jobs are searched and matched, nothing is submitted")
	}

	if err := app.InitDatabase(); err != nil {
		return fmt.Errorf("database init: %w", err)
	}
	app.repo = repository.NewJobRecordRepository(app.db)

	tracker, err := service.NewTrackerService(cfg.Tracking.ExcelFilePath, app.repo)
	if err != nil {
		return fmt.Errorf("tracker init: %w", err)
	}
	app.tracker = tracker

	app.matcher = service.NewMatcherService(cfg.JobPreferences)
	app.ai = service.NewAiService(cfg.LLM)

	app.resume = service.NewResumeService(cfg.UserProfile.ResumePath, app.ai)
	if err := app.resume.Load(ctx); err != nil {
		log.Warnf("Resume not loaded: %v", err)
	}

	app.device = droid.NewDeviceManager(cfg.Device)
	if err := app.device.Init(ctx); err != nil {
		return fmt.Errorf("device init: %w", err)
	}

	deps := worker.Deps{
		Config:  cfg,
		Device:  app.device,
		LLM:     app.ai,
		Matcher: app.matcher,
		Tracker: app.tracker,
		Resume:  app.resume,
		Repo:    app.repo,
		DryRun:  app.dryRun,
	}
	agents := []worker.PlatformAgent{
		linkedin.NewAgent(deps),
		naukri.NewAgent(deps),
		indeed.NewAgent(deps),
		unstop.NewAgent(deps),
		whatsapp.NewAgent(deps),
	}
	app.session = service.NewSessionService(cfg, agents, email.NewChecker(deps))

	log.Info("All services initialized")
	return nil
}

// Start prints the banner and stats, then kicks off the session
// goroutine. With -loop the goroutine keeps running sessions on the
// configured interval until the context is cancelled.
func (app *Application) Start() error {
	utils.PrintBanner(version, app.dryRun)

	if stats, err := app.tracker.Stats(); err == nil {
		log.Info("Current application stats:")
		log.Infof("  Total Applications: %d", stats.Total)
		log.Infof("  Applied:            %d", stats.Applied)
		log.Infof("  Interview Stage:    %d", stats.Interview)
		log.Infof("  Rejected:           %d", stats.Rejected)
	} else {
		log.Warnf("Could not read application stats: %v", err)
	}
	if seen, err := app.repo.Count(); err == nil {
		leads, _ := app.repo.CountByStatus(model.StatusLead)
		log.Infof("  Postings Tracked:   %d (%d leads)", seen, leads)
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel
	go app.runSessions(ctx)

	log.Info("Application started")
	return nil
}

func (app *Application) runSessions(ctx context.Context) {
	defer close(app.done)

	for {
		summary, err := app.session.Run(ctx)
		if summary != nil {
			summary.Print()
		}
		if err != nil {
			if ctx.Err() != nil {
				log.Warn("Session cancelled")
				return
			}
			log.Errorf("Session failed: %v", err)
		}

		if !app.loop {
			return
		}
		interval := time.Duration(app.cfg.Delays.LoopIntervalMin) * time.Minute
		log.Infof("Next session at %s", time.Now().Add(interval).Format("2006-01-02 15:04:05"))
		if err := utils.SleepCtx(ctx, interval); err != nil {
			return
		}
	}
}

// Stop winds the session down and releases every resource. It blocks
// until the session goroutine has exited.
func (app *Application) Stop() error {
	log.Info("========================================")
	log.Info("   Stopping application")
	log.Info("========================================")

	if app.cancel != nil {
		app.cancel()
	}
	<-app.done

	if app.device != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		app.device.Close(ctx)
		cancel()
	}
	if app.tracker != nil {
		if err := app.tracker.Close(); err != nil {
			log.Warnf("Tracker close: %v", err)
		}
	}
	if app.db != nil {
		if sqlDB, err := app.db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	log.Info("Application stopped")
	return nil
}

// waitForShutdown blocks until the session finishes or a signal
// arrives, then runs Stop with a hard 30s ceiling.
func (app *Application) waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Infof("Received %v, shutting down...", sig)
	case <-app.done:
		log.Info("Session complete, shutting down...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		app.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		log.Info("Graceful shutdown complete")
	case <-ctx.Done():
		log.Warn("Shutdown timed out, exiting anyway")
	}
}

// runCheck probes the setup without touching any job board: config,
// adb, the device, the platform apps and the LLM backend.
func runCheck(configPath string) int {
	fmt.Println()
	fmt.Println("Checking setup...")
	fmt.Println()

	failures := 0
	report := func(name string, err error) {
		if err != nil {
			failures++
			fmt.Printf("  %sFAIL%s  %-22s %v\n", utils.ColorRed, utils.ColorReset, name, err)
			return
		}
		fmt.Printf("  %sPASS%s  %s\n", utils.ColorGreen, utils.ColorReset, name)
	}

	cfg, err := config.InitConfig(configPath)
	report("config", err)
	if err != nil {
		fmt.Println("\nFix the configuration first, the other checks need it.")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	tools := droid.NewAdbTools("")
	if out, err := tools.Version(ctx); err != nil {
		report("adb installed", err)
		fmt.Println("\nInstall Android platform-tools and re-run the check.")
		return 1
	} else {
		report("adb installed ("+out+")", nil)
	}

	device := droid.NewDeviceManager(cfg.Device)
	if err := device.Init(ctx); err != nil {
		report("device attached", err)
	} else {
		report("device attached", nil)
		for _, probe := range []struct {
			name    string
			enabled bool
			pkg     string
		}{
			{"LinkedIn app", cfg.Platforms.LinkedIn.Enabled, locators.LINKEDIN_PACKAGE},
			{"Naukri app", cfg.Platforms.Naukri.Enabled, locators.NAUKRI_PACKAGE},
			{"Indeed app", cfg.Platforms.Indeed.Enabled, locators.INDEED_PACKAGE},
			{"Unstop app", cfg.Platforms.Unstop.Enabled, locators.UNSTOP_PACKAGE},
			{"WhatsApp app", cfg.Platforms.WhatsApp.Enabled, locators.WHATSAPP_PACKAGE},
			{"Gmail app", cfg.Email.Enabled, locators.GMAIL_PACKAGE},
		} {
			if !probe.enabled {
				fmt.Printf("  %sSKIP%s  %-22s disabled in config\n", utils.ColorYellow, utils.ColorReset, probe.name)
				continue
			}
			installed, err := device.AppInstalled(ctx, probe.pkg)
			if err == nil && !installed {
				err = fmt.Errorf("%s is not installed on the device", probe.pkg)
			}
			report(probe.name, err)
		}
		device.Close(ctx)
	}

	ai := service.NewAiService(cfg.LLM)
	report("LLM reachable", ai.Ping(ctx))

	fmt.Println()
	if failures > 0 {
		fmt.Printf("%s%d check(s) failed.%s See TROUBLESHOOTING in the README.\n\n", utils.ColorRed, failures, utils.ColorReset)
		return 1
	}
	fmt.Printf("%sAll checks passed.%s Run the agent with: jobdroid -config %s\n\n", utils.ColorGreen, utils.ColorReset, configPath)
	return 0
}

func main() {
	configPath := flag.String("config", "config.json", "path to config.json")
	loop := flag.Bool("loop", false, "keep running sessions on the configured interval")
	dryRun := flag.Bool("dry-run", false, "search and match jobs without submitting applications")
	check := flag.Bool("check", false, "verify the setup (adb, device, apps, LLM) and exit")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("jobdroid %s\n", version)
		return
	}

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if *check {
		os.Exit(runCheck(*configPath))
	}

	app := NewApplication(*configPath, *dryRun, *loop)

	initCtx, cancelInit := context.WithTimeout(context.Background(), 5*time.Minute)
	err := app.InitServices(initCtx)
	cancelInit()
	if err != nil {
		log.Fatalf("Service initialization failed: %v", err)
	}

	if err := app.Start(); err != nil {
		log.Fatalf("Application start failed: %v", err)
	}

	app.waitForShutdown()
	log.Info("Goodbye")
}
