package scaffold

// NewServiceTemplate creates the full deployment layout: PostgreSQL
// provider, redis-backed catalog cache, token auth on the gateway.
func NewServiceTemplate() *Template {
	return &Template{
		Name:        "service",
		Description: "Deployable daemon: PostgreSQL, redis cache, token auth",
		Version:     "1.0.0",
		Variables: []*Variable{
			{
				Name:        "dsn",
				Description: "PostgreSQL connection string",
				Type:        VariableTypeString,
				Default:     "postgres://localhost:5432/metaforge?sslmode=disable",
				Required:    true,
				Prompt:      "Database URL",
			},
			{
				Name:        "redis_addr",
				Description: "Redis address for the catalog cache",
				Type:        VariableTypeString,
				Default:     "localhost:6379",
				Prompt:      "Redis address",
			},
			{
				Name:        "access_key_hash",
				Description: "Bcrypt hash of the gateway access key; leave empty to disable auth",
				Type:        VariableTypeString,
				Default:     "",
				Prompt:      "Access key hash (empty disables auth)",
			},
			{
				Name:        "token_secret",
				Description: "HMAC secret for issued tokens",
				Type:        VariableTypeString,
				Default:     "",
				Prompt:      "Token signing secret",
			},
		},
		Directories: []string{
			"patterns",
			"schema",
		},
		Files: []*File{
			{
				TargetPath: "metaforge.yml",
				Template:   true,
				Content: `# {{.ProjectName}} daemon configuration.

log:
  level: info
  format: json

server:
  tcp_addr: 127.0.0.1:7171
  socket_path: /var/run/{{.ProjectName}}.sock
  http_addr: 0.0.0.0:8080

provider:
  driver: postgres
  dsn: {{.Variables.dsn}}

cache:
  backend: redis
  ttl: 5m
  redis:
    addr: {{.Variables.redis_addr}}

patterns:
  dir: patterns
{{- if .Variables.access_key_hash}}

auth:
  enabled: true
  access_key_hash: {{.Variables.access_key_hash}}
  token_secret: {{.Variables.token_secret}}
  token_ttl: 1h
{{- end}}
`,
			},
			{
				TargetPath: "schema/seed.json",
				Content:    seedSchemaJSON,
			},
			{
				TargetPath: "patterns/contact_form.pattern.json",
				Content:    contactFormPatternJSON,
			},
			{
				TargetPath: ".gitignore",
				Content:    standardGitignore,
			},
			{
				TargetPath: "README.md",
				Template:   true,
				Content: `# {{.ProjectName}}

A deployable metaforge daemon: PostgreSQL for storage, redis for the
type catalog cache{{if .Variables.access_key_hash}}, token auth on the HTTP gateway{{end}}.

## Setup

` + "```sh" + `
metaforge migrate up --seed schema/seed.json
metaforge serve
` + "```" + `
{{if .Variables.access_key_hash}}
## Auth

Exchange the access key for a bearer token:

` + "```sh" + `
curl -s -XPOST localhost:8080/api/token -d '{"accessKey":"..."}'
` + "```" + `
{{end}}`,
			},
		},
	}
}
