package architecture

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"archlens/internal/paths"
	"archlens/internal/slogutil"
	"archlens/internal/workspace"
)

type fakeSymbols map[string][]workspace.Symbol

func (f fakeSymbols) QueryWorkspaceSymbols(_ context.Context, name string) ([]workspace.Symbol, error) {
	return f[name], nil
}

func newTestAnalyzer(t *testing.T, files map[string]string, symbols workspace.SymbolIndex) *Analyzer {
	t.Helper()
	fs := workspace.NewMemFS()
	for p, content := range files {
		fs.WriteFile(p, content)
	}
	folders, err := paths.NewContext("/ws")
	if err != nil {
		t.Fatal(err)
	}
	return NewAnalyzer(Deps{Reader: fs, Search: fs, Symbols: symbols, Folders: folders}, nil, slogutil.NewDiscardLogger())
}

func findComponent(res *AnalysisResult, key string) *Component {
	for i := range res.Components {
		if res.Components[i].Key == key {
			return &res.Components[i]
		}
	}
	return nil
}

func findRelationship(res *AnalysisResult, kind RelationshipKind, source, target string) *Relationship {
	for i := range res.Relationships {
		r := &res.Relationships[i]
		if r.Kind == kind && r.Source == source && r.Target == target {
			return r
		}
	}
	return nil
}

const expressPackage = `{"name": "shop", "dependencies": {"express": "^4.0.0", "pg": "^8.0.0"}, "devDependencies": {"typescript": "^5.0.0"}}`

func TestAnalyze_CachesResult(t *testing.T) {
	a := newTestAnalyzer(t, map[string]string{"/ws/package.json": expressPackage}, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a.SetClock(func() time.Time { return now })
	ctx := context.Background()

	first, err := a.Analyze(ctx, nil)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	second, err := a.Analyze(ctx, &Options{})
	if err != nil {
		t.Fatal(err)
	}
	if first != second || first.GeneratedAt != second.GeneratedAt {
		t.Error("second Analyze without force should return the cached result")
	}

	forced, err := a.Analyze(ctx, &Options{Force: true})
	if err != nil {
		t.Fatal(err)
	}
	if forced == first || forced.RunID == first.RunID {
		t.Error("Force should recompute")
	}

	now = now.Add(6 * time.Minute)
	expired, err := a.Analyze(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if expired == forced {
		t.Error("result older than the TTL should be recomputed")
	}

	a.Invalidate()
	after, err := a.Analyze(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if after == expired {
		t.Error("Invalidate should drop the cached result")
	}
}

func TestAnalyze_NodeEcosystem(t *testing.T) {
	a := newTestAnalyzer(t, map[string]string{"/ws/package.json": expressPackage}, nil)
	res, err := a.Analyze(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}

	app := findComponent(res, "application:/ws")
	if app == nil || app.Language != "TypeScript" || app.Kind != KindApplication {
		t.Fatalf("unexpected application: %+v", app)
	}
	express := findComponent(res, "backend:express:/ws")
	if express == nil || express.Kind != KindBackend || express.Confidence != 0.8 {
		t.Fatalf("unexpected express component: %+v", express)
	}
	pg := findComponent(res, "database:postgresql:/ws")
	if pg == nil {
		t.Fatal("expected a PostgreSQL component")
	}
	if findRelationship(res, RelHosts, app.Key, express.Key) == nil {
		t.Error("expected application hosts express")
	}
	conn := findRelationship(res, RelConnectsTo, express.Key, pg.Key)
	if conn == nil {
		t.Fatal("expected express connectsTo postgresql")
	}
	if want := (0.8 + 0.7) / 2; math.Abs(conn.Confidence-want) > 1e-9 {
		t.Errorf("connectsTo confidence = %v, want %v", conn.Confidence, want)
	}
}

func TestAnalyze_MergesDependencyAndSymbolEvidence(t *testing.T) {
	symbols := fakeSymbols{
		"Controller": {{Name: "UserController", Kind: "class", Path: "/ws/src/user.controller.ts", Line: 3}},
	}
	a := newTestAnalyzer(t, map[string]string{
		"/ws/package.json":           `{"dependencies": {"express": "^4.0.0"}}`,
		"/ws/src/user.controller.ts": "export class UserController {}\n",
	}, symbols)

	res, err := a.Analyze(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	express := findComponent(res, "backend:express:/ws")
	if express == nil {
		t.Fatal("expected express component")
	}
	if express.Confidence != 0.8 {
		t.Errorf("Confidence = %v, want 0.8 (max of 0.8 and 0.2)", express.Confidence)
	}
	if len(express.Evidence) != 2 {
		t.Fatalf("len(Evidence) = %d, want 2: %+v", len(express.Evidence), express.Evidence)
	}
	if express.Evidence[0].Confidence < express.Evidence[1].Confidence {
		t.Error("evidence should be sorted by confidence, highest first")
	}
	backends := 0
	for _, c := range res.Components {
		if c.Kind == KindBackend {
			backends++
		}
	}
	if backends != 1 {
		t.Errorf("got %d backend components, want 1", backends)
	}
}

func TestAnalyze_DatasetCap(t *testing.T) {
	var schema strings.Builder
	schema.WriteString("datasource db {\n  provider = \"postgresql\"\n  url = env(\"DATABASE_URL\")\n}\n\n")
	for i := 0; i < 151; i++ {
		fmt.Fprintf(&schema, "model Model%d {\n  id Int @id\n  name String\n}\n\n", i)
	}
	a := newTestAnalyzer(t, map[string]string{"/ws/prisma/schema.prisma": schema.String()}, nil)

	res, err := a.Analyze(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	datasets := 0
	for _, c := range res.Components {
		if c.Kind == KindDataset {
			datasets++
		}
	}
	if datasets != 150 {
		t.Errorf("got %d datasets, want 150", datasets)
	}
	capWarnings := 0
	for _, w := range res.Warnings {
		if strings.Contains(w, "Dataset limit") {
			capWarnings++
			if !strings.Contains(w, "ws") {
				t.Errorf("cap warning should name the application: %q", w)
			}
		}
	}
	if capWarnings != 1 {
		t.Errorf("got %d cap warnings, want 1: %v", capWarnings, res.Warnings)
	}

	first := findComponent(res, "dataset:model0:/ws")
	if first == nil {
		t.Fatal("expected dataset Model0")
	}
	fields, _ := first.Metadata["fields"].([]interface{})
	if len(fields) != 2 {
		t.Errorf("Model0 fields = %v, want 2 entries", first.Metadata["fields"])
	}
	if findComponent(res, "database:postgresql:/ws") == nil {
		t.Error("datasource provider should register PostgreSQL")
	}
}

func TestAnalyze_DatasetsLinkedToBackends(t *testing.T) {
	a := newTestAnalyzer(t, map[string]string{
		"/ws/package.json":     `{"dependencies": {"express": "^4.0.0"}}`,
		"/ws/db/schema.sql":    "CREATE TABLE IF NOT EXISTS orders (\n  id SERIAL PRIMARY KEY,\n  total NUMERIC(10, 2),\n  PRIMARY KEY (id)\n);\n",
		"/ws/server/orders.ts": "const rows = await db.query(`SELECT id, total\n  FROM orders WHERE id = $1`)\n",
	}, nil)
	res, err := a.Analyze(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}

	orders := findComponent(res, "dataset:orders:/ws")
	if orders == nil {
		t.Fatal("expected orders dataset")
	}
	cols, _ := orders.Metadata["fields"].([]interface{})
	if len(cols) != 2 {
		t.Errorf("orders columns = %v, want id and total", cols)
	}
	if findRelationship(res, RelStores, "application:/ws", orders.Key) == nil {
		t.Error("expected application stores orders")
	}
	if findRelationship(res, RelStores, "backend:express:/ws", orders.Key) == nil {
		t.Error("expected express stores orders")
	}
	if findRelationship(res, RelQueries, "backend:express:/ws", orders.Key) == nil {
		t.Error("expected express queries orders")
	}
}

func TestAnalyze_HTTPClients(t *testing.T) {
	a := newTestAnalyzer(t, map[string]string{
		"/ws/package.json": `{"dependencies": {"express": "^4.0.0", "react": "^18.0.0"}}`,
		"/ws/src/components/Orders.tsx": `
const orders = await fetch('/api/orders', { method: 'POST' })
const charge = await axios.get('https://api.stripe.com/v1/charges')
const again = await axios.post("https://api.stripe.com/v1/charges")
`,
	}, nil)
	res, err := a.Analyze(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}

	react := "frontend:react:/ws"
	if findRelationship(res, RelCalls, react, "backend:express:/ws") == nil {
		t.Error("expected an internal calls edge to the first backend")
	}
	stripe := findComponent(res, "externalService:api.stripe.com")
	if stripe == nil {
		t.Fatal("expected external service for api.stripe.com")
	}
	endpoints, _ := stripe.Metadata["endpoints"].([]interface{})
	if len(endpoints) != 1 {
		t.Fatalf("endpoints = %v, want one distinct url", stripe.Metadata["endpoints"])
	}
	methods := endpoints[0].(map[string]interface{})["methods"].([]string)
	if strings.Join(methods, ",") != "GET,POST" {
		t.Errorf("methods = %v, want GET,POST", methods)
	}
	if findRelationship(res, RelCalls, react, stripe.Key) == nil {
		t.Error("expected react calls stripe")
	}
}

func TestAnalyze_GraphQLOperations(t *testing.T) {
	a := newTestAnalyzer(t, map[string]string{
		"/ws/package.json":   `{"dependencies": {"react": "^18.0.0"}}`,
		"/ws/src/queries.ts": "export const Q = gql`\n  query GetUsers { users { id } }\n`\nexport const M = gql`mutation { addUser }`\n",
	}, nil)
	res, err := a.Analyze(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	react := findComponent(res, "frontend:react:/ws")
	ops, _ := react.Metadata["graphqlOperations"].([]interface{})
	if len(ops) != 2 {
		t.Fatalf("graphqlOperations = %v, want 2", react.Metadata["graphqlOperations"])
	}
	if name := ops[0].(map[string]interface{})["name"]; name != "GetUsers" {
		t.Errorf("first operation name = %v, want GetUsers", name)
	}
	if react.Confidence <= 0.7 {
		t.Errorf("GraphQL evidence should nudge confidence above 0.7, got %v", react.Confidence)
	}
}

func TestAnalyze_OtherEcosystems(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantKey []string
	}{
		{
			name: "python",
			files: map[string]string{
				"/ws/requirements.txt": "Flask==2.3.0  # web\npsycopg2-binary>=2.9\n-r dev.txt\n",
				"/ws/pyproject.toml":   "[project]\nname = \"svc\"\ndependencies = [\"redis>=5\", \"celery[redis]\"]\n",
			},
			wantKey: []string{"backend:flask:/ws", "database:postgresql:/ws", "cache:redis:/ws", "queue:celery:/ws"},
		},
		{
			name: "go",
			files: map[string]string{
				"/ws/go.mod": "module example.com/svc\n\ngo 1.22\n\nrequire (\n\tgithub.com/gin-gonic/gin v1.9.1\n\tgithub.com/jackc/pgx/v5 v5.5.0\n)\n",
			},
			wantKey: []string{"backend:gin:/ws", "database:postgresql:/ws"},
		},
		{
			name: "rust",
			files: map[string]string{
				"/ws/Cargo.toml": "[package]\nname = \"svc\"\n\n[dependencies]\naxum = \"0.7\"\nsqlx = { version = \"0.7\", features = [\"postgres\"] }\ndeadpool-redis = \"0.14\"\n",
			},
			wantKey: []string{"backend:axum:/ws", "database:sqlx:/ws", "cache:redis:/ws"},
		},
		{
			name: "compose",
			files: map[string]string{
				"/ws/docker-compose.yml": "services:\n  db:\n    image: postgres:16\n  cache:\n    image: \"redis:7-alpine\"\n  app:\n    build: .\n",
			},
			wantKey: []string{"database:postgresql:/ws", "cache:redis:/ws"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAnalyzer(t, tt.files, nil)
			res, err := a.Analyze(context.Background(), nil)
			if err != nil {
				t.Fatal(err)
			}
			for _, key := range tt.wantKey {
				if findComponent(res, key) == nil {
					t.Errorf("missing component %s", key)
				}
			}
		})
	}
}

func TestAnalyze_ComposeDependsOn(t *testing.T) {
	a := newTestAnalyzer(t, map[string]string{
		"/ws/compose.yaml": "services:\n  mongo:\n    image: mongo:7\n",
	}, nil)
	res, err := a.Analyze(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if findRelationship(res, RelDependsOn, "application:/ws", "database:mongodb:/ws") == nil {
		t.Error("expected application dependsOn mongodb")
	}
}

func TestAnalyze_Warnings(t *testing.T) {
	a := newTestAnalyzer(t, map[string]string{"/ws/package.json": `{"dependencies": `}, nil)
	res, err := a.Analyze(context.Background(), nil)
	if err != nil {
		t.Fatalf("parse failures must not abort the analysis: %v", err)
	}
	var parse, symbols bool
	for _, w := range res.Warnings {
		if strings.Contains(w, "Could not parse") && strings.Contains(w, "package.json") {
			parse = true
		}
		if strings.Contains(w, "No workspace symbol provider") {
			symbols = true
		}
	}
	if !parse || !symbols {
		t.Errorf("Warnings = %v, want parse and symbol provider warnings", res.Warnings)
	}
	if findComponent(res, "application:/ws") == nil {
		t.Error("application should still be reported")
	}
}

func TestAnalyze_SymbolLimit(t *testing.T) {
	var hits []workspace.Symbol
	for i := 0; i < 10; i++ {
		hits = append(hits, workspace.Symbol{Name: fmt.Sprintf("S%dService", i), Path: fmt.Sprintf("/ws/server/s%d.ts", i)})
	}
	a := newTestAnalyzer(t, nil, fakeSymbols{"Service": hits})
	res, err := a.Analyze(context.Background(), &Options{MaxWorkspaceSymbols: 4})
	if err != nil {
		t.Fatal(err)
	}
	inferred := findComponent(res, "backend:inferred:/ws")
	if inferred == nil {
		t.Fatal("expected an inferred backend")
	}
	if len(inferred.Evidence) != 4 {
		t.Errorf("len(Evidence) = %d, want 4", len(inferred.Evidence))
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "capped at 4") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a symbol cap warning, got %v", res.Warnings)
	}
}

func TestAnalyze_Progress(t *testing.T) {
	a := newTestAnalyzer(t, nil, nil)
	var messages []string
	a.SetProgress(func(msg string) { messages = append(messages, msg) })
	if _, err := a.Analyze(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if len(messages) != len(passes) {
		t.Errorf("got %d progress messages, want %d", len(messages), len(passes))
	}
}

func TestAnalyze_Cancelled(t *testing.T) {
	a := newTestAnalyzer(t, map[string]string{"/ws/package.json": expressPackage}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Analyze(ctx, nil); err == nil {
		t.Error("expected cancellation error")
	}
	if _, ok := a.cache.Get(); ok {
		t.Error("a cancelled analysis must not be cached")
	}
}

func TestAnalyze_NoFolders(t *testing.T) {
	fs := workspace.NewMemFS()
	folders, _ := paths.NewContext()
	a := NewAnalyzer(Deps{Reader: fs, Search: fs, Folders: folders}, nil, slogutil.NewDiscardLogger())
	if _, err := a.Analyze(context.Background(), nil); err == nil {
		t.Error("expected an error without workspace folders")
	}
}
