package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/example/taskflow/modules/api"
	"github.com/example/taskflow/modules/attachments"
	"github.com/example/taskflow/modules/auth"
	"github.com/example/taskflow/modules/cache"
	"github.com/example/taskflow/modules/notifier"
	"github.com/example/taskflow/modules/tasks"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== TaskFlow ===")

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	cacheModule := cache.NewModule()
	attachmentsModule := attachments.NewModule()

	// Order: providers first, then the modules that consume them.
	app.Register(cacheModule)
	app.Register(attachmentsModule)
	app.Register(auth.NewModule())
	app.Register(tasks.NewModule(attachmentsModule, cacheModule))
	app.Register(notifier.NewModule())
	app.Register(api.NewModule(attachmentsModule))

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("REST API Endpoints (http://localhost:3000):")
	log.Println("")
	log.Println("  Public Endpoints:")
	log.Println("  POST   /api/v1/auth/register       - Register a new user")
	log.Println("  POST   /api/v1/auth/login          - Login and get tokens")
	log.Println("  POST   /api/v1/auth/refresh        - Refresh access token")
	log.Println("  GET    /health                     - Health check")
	log.Println("")
	log.Println("  Protected Endpoints (require Bearer token):")
	log.Println("  GET    /api/v1/auth/me             - Current user profile")
	log.Println("  POST   /api/v1/tasks               - Create a task (JSON or multipart)")
	log.Println("  GET    /api/v1/tasks               - List tasks (filter, search, paginate)")
	log.Println("  GET    /api/v1/tasks/today         - Tasks due today")
	log.Println("  GET    /api/v1/tasks/overdue       - Overdue tasks")
	log.Println("  GET    /api/v1/tasks/upcoming      - Upcoming tasks")
	log.Println("  GET    /api/v1/tasks/recent        - Most recently created tasks")
	log.Println("  GET    /api/v1/tasks/stats         - Per-user task statistics")
	log.Println("  GET    /api/v1/tasks/:id           - Get a task")
	log.Println("  PUT    /api/v1/tasks/:id           - Update a task (JSON or multipart)")
	log.Println("  DELETE /api/v1/tasks/:id           - Delete a task")
	log.Println("  DELETE /api/v1/tasks/bulk          - Delete a set of tasks")
	log.Println("  GET    /api/v1/attachments/*       - Download an attachment")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
