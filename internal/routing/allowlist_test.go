package routing

import "testing"

func TestParseAllowlistYAML(t *testing.T) {
	t.Parallel()

	a, err := ParseAllowlistYAML([]byte(`
version: 1
entrypoints:
  server:
    routes:
      - path: /health
        methods: [GET]
        route_class: ops
`))
	if err != nil {
		t.Fatal(err)
	}
	routes := a.Entrypoints["server"].Routes
	if len(routes) != 1 || routes[0].Path != "/health" || routes[0].RouteClass != "ops" {
		t.Fatalf("routes=%+v", routes)
	}
}

func TestParseAllowlistYAML_Errors(t *testing.T) {
	t.Parallel()

	if _, err := ParseAllowlistYAML([]byte(`version: 2`)); err == nil {
		t.Fatal("expected version error")
	}
	if _, err := ParseAllowlistYAML([]byte(`version: 1`)); err == nil {
		t.Fatal("expected missing entrypoints error")
	}
	if _, err := ParseAllowlistYAML([]byte(`{not yaml`)); err == nil {
		t.Fatal("expected parse error")
	}
}
