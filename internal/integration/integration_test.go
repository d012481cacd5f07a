package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"sparklab/internal/app"
	"sparklab/internal/auth"
	"sparklab/internal/domain"
	"sparklab/internal/infra/memory"
	pgstore "sparklab/internal/infra/postgres"
	pgmigrations "sparklab/internal/infra/postgres/migrations"
	"sparklab/internal/infra/rabbit"
	infraredis "sparklab/internal/infra/redis"
)

func TestActivityProgressEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	activities := pgstore.NewActivityStore(pool)
	if err := activities.SeedActivities(ctx, domain.BuiltinActivities()); err != nil {
		t.Fatalf("seed activities: %v", err)
	}
	users := app.NewUserService(pgstore.NewUserStore(pool), auth.NewTokens("it-secret", time.Hour), nil)
	if _, err := users.Register(ctx, app.Registration{
		Email: "ada@example.com", UserName: "Ada", Password: "sparky123", ID: "STUDENT42", Age: 9,
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := users.Register(ctx, app.Registration{
		Email: "ADA@example.com", UserName: "Ada again", Password: "sparky123", ID: "STUDENT43",
	}); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected duplicate email to be rejected, got %v", err)
	}

	newService := func() *app.ActivityService {
		return app.NewActivityService(activities, pgstore.NewProgressStore(pool), pgstore.NewActionStore(pool), nil)
	}

	svc := newService()
	first, err := svc.CompleteSection(ctx, "circuit", "STUDENT42", "circuit", nil, nil)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !first.First || first.StarsAwarded != 3 || first.ScoreAwarded != 25 {
		t.Fatalf("unexpected first completion %+v", first)
	}

	// a fresh service must see the persisted latch
	again, err := newService().CompleteSection(ctx, "circuit", "STUDENT42", "circuit", nil, nil)
	if err != nil {
		t.Fatalf("complete again: %v", err)
	}
	if again.First || again.Session.StarsEarned != 3 || again.Session.FinalScore != 25 {
		t.Fatalf("expected idempotent completion, got %+v", again)
	}

	if _, err := svc.RecordAction(ctx, domain.ActionRecord{
		ActivityID: "circuit", UserID: "STUDENT42", Action: "WIRE_CONNECTED", Section: "circuit",
		Data: json.RawMessage(`{"from":"battery","to":"bulb"}`),
	}); err != nil {
		t.Fatalf("record action: %v", err)
	}
	var count int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM activity_actions WHERE user_id = $1`, "STUDENT42").Scan(&count); err != nil {
		t.Fatalf("count actions: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 stored action, got %d", count)
	}
}

func TestQuizSubmitEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()
	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	quizzes := domain.BuiltinQuizzes()
	loader := pgstore.NewQuizLoader(pool)
	if err := loader.SeedQuizzes(ctx, quizzes); err != nil {
		t.Fatalf("seed quizzes: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	service := app.NewQuizService(
		infraredis.NewQuizRepository(redisClient, loader, 5*time.Minute),
		pgstore.NewResultStore(pool),
		nil,
	)

	quiz := quizzes["READANDWRITE"]
	answers := make([]string, len(quiz.Questions))
	for i, q := range quiz.Questions {
		answers[i] = q.CorrectAnswer
	}
	answers[0] = "definitely wrong"

	out, err := service.Submit(ctx, "readandwrite", app.Submission{
		Taker:   app.Taker{User: "u-1", UserID: "STUDENT42", Username: "Ada", Email: "ada@example.com"},
		Answers: answers,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if want := len(quiz.Questions) - 1; out.TotalMarks != want {
		t.Fatalf("expected %d marks, got %d", want, out.TotalMarks)
	}

	if n, err := redisClient.Exists(ctx, "quiz:READANDWRITE").Result(); err != nil || n != 1 {
		t.Fatalf("expected quiz cached in redis, n=%d err=%v", n, err)
	}

	results, err := service.Results(ctx, "ada")
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results) != 1 || results[0].QuizName != "READANDWRITE" {
		t.Fatalf("unexpected results %+v", results)
	}
	if results, _ := service.Results(ctx, "nobody"); len(results) != 0 {
		t.Fatalf("expected no match, got %+v", results)
	}
}

func TestActionPublishedToBroker(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	amqpURL, cleanup := startRabbit(t, ctx)
	defer cleanup()

	publisher, err := rabbit.Dial(amqpURL, rabbit.DefaultExchange)
	if err != nil {
		t.Fatalf("dial publisher: %v", err)
	}
	defer publisher.Close()

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		t.Fatalf("dial consumer: %v", err)
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		t.Fatalf("declare queue: %v", err)
	}
	if err := ch.QueueBind(q.Name, rabbit.ActionRoutingKey, rabbit.DefaultExchange, false, nil); err != nil {
		t.Fatalf("bind queue: %v", err)
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}

	svc := app.NewActivityService(
		memory.NewActivityStore(domain.BuiltinActivities()...),
		memory.NewProgressStore(),
		memory.NewActionStore(10),
		nil,
		app.WithPublisher(publisher),
	)
	rec, err := svc.RecordAction(ctx, domain.ActionRecord{
		ActivityID: "motor", UserID: "STUDENT7", Action: "SPEED_CHANGED", Section: "speed",
	})
	if err != nil {
		t.Fatalf("record action: %v", err)
	}

	select {
	case d := <-deliveries:
		if d.MessageId != rec.ID || d.Type != "SPEED_CHANGED" {
			t.Fatalf("unexpected delivery id=%s type=%s", d.MessageId, d.Type)
		}
		var got domain.ActionRecord
		if err := json.Unmarshal(d.Body, &got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if got.UserID != "STUDENT7" || got.Section != "speed" {
			t.Fatalf("unexpected record %+v", got)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for published action")
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "spark", "POSTGRES_PASSWORD": "sparkpass", "POSTGRES_DB": "sparklab"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://spark:sparkpass@%s:%s/sparklab?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func startRabbit(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "rabbitmq:3-alpine",
		ExposedPorts: []string{"5672/tcp"},
		WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(90 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start rabbitmq: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("rabbit host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5672/tcp")
	if err != nil {
		t.Fatalf("rabbit port: %v", err)
	}
	url := fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
