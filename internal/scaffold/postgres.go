package scaffold

// NewPostgresTemplate creates a project backed by PostgreSQL with the HTTP
// gateway enabled.
func NewPostgresTemplate() *Template {
	return &Template{
		Name:        "postgres",
		Description: "Daemon backed by PostgreSQL with the HTTP gateway",
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
				Name:        "http_port",
				Description: "HTTP gateway port",
				Type:        VariableTypeInt,
				Default:     8080,
				Prompt:      "HTTP port",
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
  http_addr: 127.0.0.1:{{.Variables.http_port}}

provider:
  driver: postgres
  dsn: {{.Variables.dsn}}

patterns:
  dir: patterns
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

A metaforge project backed by PostgreSQL.

## Setup

` + "```sh" + `
createdb metaforge
metaforge migrate up --seed schema/seed.json
metaforge serve
` + "```" + `

The HTTP gateway answers on port {{.Variables.http_port}}:

` + "```sh" + `
curl -s localhost:{{.Variables.http_port}}/api/types
` + "```" + `
`,
			},
		},
	}
}
