package architecture

// techEntry describes a technology recognized from a dependency, module path,
// crate or container image.
type techEntry struct {
	ID         string
	Label      string
	Kind       ComponentKind
	Confidence float64
}

// Node.js dependency tables.
var (
	nodeFrontendFrameworks = map[string]techEntry{
		"react":            {"react", "React", KindFrontend, 0.7},
		"next":             {"nextjs", "Next.js", KindFrontend, 0.8},
		"vue":              {"vue", "Vue", KindFrontend, 0.7},
		"nuxt":             {"nuxt", "Nuxt", KindFrontend, 0.8},
		"@angular/core":    {"angular", "Angular", KindFrontend, 0.8},
		"svelte":           {"svelte", "Svelte", KindFrontend, 0.7},
		"@sveltejs/kit":    {"sveltekit", "SvelteKit", KindFrontend, 0.8},
		"solid-js":         {"solid", "SolidJS", KindFrontend, 0.7},
		"preact":           {"preact", "Preact", KindFrontend, 0.7},
		"gatsby":           {"gatsby", "Gatsby", KindFrontend, 0.8},
		"@remix-run/react": {"remix", "Remix", KindFrontend, 0.8},
		"astro":            {"astro", "Astro", KindFrontend, 0.75},
	}

	nodeBackendFrameworks = map[string]techEntry{
		"express":        {"express", "Express", KindBackend, 0.8},
		"fastify":        {"fastify", "Fastify", KindBackend, 0.8},
		"koa":            {"koa", "Koa", KindBackend, 0.75},
		"@nestjs/core":   {"nestjs", "NestJS", KindBackend, 0.85},
		"@hapi/hapi":     {"hapi", "hapi", KindBackend, 0.75},
		"hapi":           {"hapi", "hapi", KindBackend, 0.7},
		"@apollo/server": {"apollo", "Apollo Server", KindBackend, 0.8},
		"apollo-server":  {"apollo", "Apollo Server", KindBackend, 0.75},
		"hono":           {"hono", "Hono", KindBackend, 0.75},
		"restify":        {"restify", "Restify", KindBackend, 0.75},
		"@trpc/server":   {"trpc", "tRPC", KindBackend, 0.7},
	}

	nodeDatabaseClients = map[string]techEntry{
		"pg":                    {"postgresql", "PostgreSQL", KindDatabase, 0.7},
		"postgres":              {"postgresql", "PostgreSQL", KindDatabase, 0.7},
		"mysql":                 {"mysql", "MySQL", KindDatabase, 0.7},
		"mysql2":                {"mysql", "MySQL", KindDatabase, 0.7},
		"mongodb":               {"mongodb", "MongoDB", KindDatabase, 0.75},
		"mongoose":              {"mongodb", "MongoDB", KindDatabase, 0.75},
		"@prisma/client":        {"prisma", "Prisma", KindDatabase, 0.7},
		"sequelize":             {"sequelize", "Sequelize", KindDatabase, 0.6},
		"typeorm":               {"typeorm", "TypeORM", KindDatabase, 0.6},
		"knex":                  {"knex", "Knex", KindDatabase, 0.55},
		"sqlite3":               {"sqlite", "SQLite", KindDatabase, 0.7},
		"better-sqlite3":        {"sqlite", "SQLite", KindDatabase, 0.7},
		"@supabase/supabase-js": {"supabase", "Supabase", KindDatabase, 0.7},
		"firebase-admin":        {"firestore", "Firestore", KindDatabase, 0.6},
		"drizzle-orm":           {"drizzle", "Drizzle ORM", KindDatabase, 0.6},
	}

	nodeCacheClients = map[string]techEntry{
		"redis":      {"redis", "Redis", KindCache, 0.7},
		"ioredis":    {"redis", "Redis", KindCache, 0.75},
		"memcached":  {"memcached", "Memcached", KindCache, 0.7},
		"node-cache": {"node-cache", "In-memory cache", KindCache, 0.4},
	}

	nodeMessageBusClients = map[string]techEntry{
		"amqplib":              {"rabbitmq", "RabbitMQ", KindMessageBus, 0.75},
		"kafkajs":              {"kafka", "Kafka", KindMessageBus, 0.75},
		"nats":                 {"nats", "NATS", KindMessageBus, 0.7},
		"bullmq":               {"bullmq", "BullMQ", KindQueue, 0.75},
		"bull":                 {"bull", "Bull", KindQueue, 0.7},
		"@aws-sdk/client-sqs":  {"sqs", "Amazon SQS", KindQueue, 0.75},
		"@google-cloud/pubsub": {"pubsub", "Google Pub/Sub", KindMessageBus, 0.75},
		"@azure/service-bus":   {"servicebus", "Azure Service Bus", KindMessageBus, 0.75},
	}

	// typeScriptSignals marks a Node application as TypeScript.
	typeScriptSignals = []string{"typescript", "ts-node", "tsx", "@types/node", "ts-jest", "@swc/core"}
)

// Python package tables (lower-cased names).
var (
	pythonBackendFrameworks = map[string]techEntry{
		"django":    {"django", "Django", KindBackend, 0.85},
		"flask":     {"flask", "Flask", KindBackend, 0.8},
		"fastapi":   {"fastapi", "FastAPI", KindBackend, 0.85},
		"starlette": {"starlette", "Starlette", KindBackend, 0.7},
		"tornado":   {"tornado", "Tornado", KindBackend, 0.7},
		"aiohttp":   {"aiohttp", "aiohttp", KindBackend, 0.6},
		"sanic":     {"sanic", "Sanic", KindBackend, 0.75},
		"pyramid":   {"pyramid", "Pyramid", KindBackend, 0.75},
		"falcon":    {"falcon", "Falcon", KindBackend, 0.75},
		"litestar":  {"litestar", "Litestar", KindBackend, 0.75},
	}

	pythonDatastores = map[string]techEntry{
		"psycopg2":        {"postgresql", "PostgreSQL", KindDatabase, 0.75},
		"psycopg2-binary": {"postgresql", "PostgreSQL", KindDatabase, 0.75},
		"psycopg":         {"postgresql", "PostgreSQL", KindDatabase, 0.75},
		"asyncpg":         {"postgresql", "PostgreSQL", KindDatabase, 0.75},
		"sqlalchemy":      {"sqlalchemy", "SQLAlchemy", KindDatabase, 0.6},
		"pymongo":         {"mongodb", "MongoDB", KindDatabase, 0.75},
		"motor":           {"mongodb", "MongoDB", KindDatabase, 0.7},
		"mysqlclient":     {"mysql", "MySQL", KindDatabase, 0.7},
		"pymysql":         {"mysql", "MySQL", KindDatabase, 0.7},
		"redis":           {"redis", "Redis", KindCache, 0.7},
		"celery":          {"celery", "Celery", KindQueue, 0.7},
		"kafka-python":    {"kafka", "Kafka", KindMessageBus, 0.75},
		"confluent-kafka": {"kafka", "Kafka", KindMessageBus, 0.75},
		"pika":            {"rabbitmq", "RabbitMQ", KindMessageBus, 0.7},
	}
)

// Go module path tables, matched by path prefix.
var (
	goBackendFrameworks = map[string]techEntry{
		"github.com/gin-gonic/gin":    {"gin", "Gin", KindBackend, 0.85},
		"github.com/labstack/echo":    {"echo", "Echo", KindBackend, 0.85},
		"github.com/gofiber/fiber":    {"fiber", "Fiber", KindBackend, 0.85},
		"github.com/go-chi/chi":       {"chi", "chi", KindBackend, 0.75},
		"github.com/gorilla/mux":      {"gorilla", "Gorilla Mux", KindBackend, 0.75},
		"google.golang.org/grpc":      {"grpc", "gRPC", KindBackend, 0.7},
		"github.com/99designs/gqlgen": {"gqlgen", "gqlgen", KindBackend, 0.75},
	}

	goDatastores = map[string]techEntry{
		"github.com/lib/pq":              {"postgresql", "PostgreSQL", KindDatabase, 0.75},
		"github.com/jackc/pgx":           {"postgresql", "PostgreSQL", KindDatabase, 0.8},
		"gorm.io/gorm":                   {"gorm", "GORM", KindDatabase, 0.6},
		"go.mongodb.org/mongo-driver":    {"mongodb", "MongoDB", KindDatabase, 0.8},
		"github.com/go-sql-driver/mysql": {"mysql", "MySQL", KindDatabase, 0.75},
		"modernc.org/sqlite":             {"sqlite", "SQLite", KindDatabase, 0.7},
		"github.com/mattn/go-sqlite3":    {"sqlite", "SQLite", KindDatabase, 0.7},
		"github.com/redis/go-redis":      {"redis", "Redis", KindCache, 0.8},
		"github.com/go-redis/redis":      {"redis", "Redis", KindCache, 0.8},
		"github.com/segmentio/kafka-go":  {"kafka", "Kafka", KindMessageBus, 0.75},
		"github.com/IBM/sarama":          {"kafka", "Kafka", KindMessageBus, 0.75},
		"github.com/nats-io/nats.go":     {"nats", "NATS", KindMessageBus, 0.75},
		"github.com/rabbitmq/amqp091-go": {"rabbitmq", "RabbitMQ", KindMessageBus, 0.75},
	}
)

// Rust crate tables, matched by substring of the dependency name.
var (
	rustBackendCrates = []struct {
		Fragment string
		Entry    techEntry
	}{
		{"actix-web", techEntry{"actix", "Actix Web", KindBackend, 0.85}},
		{"axum", techEntry{"axum", "Axum", KindBackend, 0.85}},
		{"rocket", techEntry{"rocket", "Rocket", KindBackend, 0.8}},
		{"warp", techEntry{"warp", "warp", KindBackend, 0.75}},
		{"poem", techEntry{"poem", "Poem", KindBackend, 0.75}},
		{"tide", techEntry{"tide", "Tide", KindBackend, 0.7}},
	}

	rustDatastoreCrates = []struct {
		Fragment string
		Entry    techEntry
	}{
		{"tokio-postgres", techEntry{"postgresql", "PostgreSQL", KindDatabase, 0.75}},
		{"sqlx", techEntry{"sqlx", "SQLx", KindDatabase, 0.65}},
		{"diesel", techEntry{"diesel", "Diesel", KindDatabase, 0.65}},
		{"sea-orm", techEntry{"seaorm", "SeaORM", KindDatabase, 0.65}},
		{"mongodb", techEntry{"mongodb", "MongoDB", KindDatabase, 0.75}},
		{"rusqlite", techEntry{"sqlite", "SQLite", KindDatabase, 0.7}},
		{"redis", techEntry{"redis", "Redis", KindCache, 0.7}},
		{"lapin", techEntry{"rabbitmq", "RabbitMQ", KindMessageBus, 0.7}},
		{"rdkafka", techEntry{"kafka", "Kafka", KindMessageBus, 0.75}},
	}
)

// Container image fragments recognized in compose files.
var composeImages = []struct {
	Fragment string
	Entry    techEntry
}{
	{"postgis", techEntry{"postgresql", "PostgreSQL", KindDatabase, 0.75}},
	{"postgres", techEntry{"postgresql", "PostgreSQL", KindDatabase, 0.8}},
	{"mongo", techEntry{"mongodb", "MongoDB", KindDatabase, 0.8}},
	{"redis", techEntry{"redis", "Redis", KindCache, 0.8}},
	{"mysql", techEntry{"mysql", "MySQL", KindDatabase, 0.8}},
	{"mariadb", techEntry{"mysql", "MySQL", KindDatabase, 0.75}},
	{"rabbitmq", techEntry{"rabbitmq", "RabbitMQ", KindMessageBus, 0.8}},
	{"kafka", techEntry{"kafka", "Kafka", KindMessageBus, 0.75}},
}

// symbolFragments are the workspace symbol queries of the symbol pass.
var symbolFragments = []string{"Controller", "Service", "Repository", "Resolver", "Component", "Client"}
