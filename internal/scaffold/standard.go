package scaffold

// seedSchemaJSON is the starter schema: a small form-designer catalog with
// constructible kinds, an enum-backed property, and creation parameters.
// It loads through the provider seed path, so the same file works for the
// memory driver at startup and for migrate --seed on the sql drivers.
const seedSchemaJSON = `{
  "types": [
    {
      "name": "Form",
      "namespace": "app",
      "constructible": true,
      "properties": [
        {"name": "Title", "kind": "scalar", "data_type": "string"},
        {"name": "Caption", "kind": "scalar", "data_type": "string", "nullable": true}
      ],
      "collections": [
        {"name": "Items", "element_type": "Field"},
        {"name": "Sections", "element_type": "Section"}
      ],
      "parameters": [
        {"name": "name", "required": true, "format": "^[A-Za-z][A-Za-z0-9_]*$"},
        {"name": "title", "required": false, "default": "Untitled form"}
      ],
      "child_collection": "Items"
    },
    {
      "name": "Section",
      "namespace": "app",
      "constructible": true,
      "properties": [
        {"name": "Label", "kind": "scalar", "data_type": "string"}
      ],
      "collections": [
        {"name": "Items", "element_type": "Field"}
      ],
      "parameters": [
        {"name": "name", "required": true}
      ],
      "child_collection": "Items"
    },
    {
      "name": "Field",
      "namespace": "app",
      "constructible": true,
      "properties": [
        {"name": "Name", "kind": "scalar", "data_type": "string"},
        {"name": "Kind", "kind": "enum", "data_type": "FieldKind", "enum_values": ["Text", "Number", "Date"]},
        {"name": "Required", "kind": "scalar", "data_type": "bool"},
        {"name": "Placeholder", "kind": "scalar", "data_type": "string", "nullable": true}
      ],
      "parameters": [
        {"name": "name", "required": true}
      ]
    },
    {
      "name": "Report",
      "namespace": "app",
      "constructible": true,
      "properties": [
        {"name": "Name", "kind": "scalar", "data_type": "string"},
        {"name": "Status", "kind": "scalar", "data_type": "ReportStatusEnum"},
        {"name": "CreatedBy", "kind": "scalar", "data_type": "string", "read_only": true}
      ],
      "collections": [
        {"name": "Rows", "element_type": "Field"}
      ],
      "parameters": [
        {"name": "name", "required": true},
        {"name": "status", "required": false, "default": "Draft"}
      ],
      "child_collection": "Rows"
    }
  ],
  "details": {
    "Form": [
      {"property": "Title", "label": "Form title", "description": "Shown in the designer header"}
    ],
    "Field": [
      {"property": "Name", "label": "Field name"},
      {"property": "Kind", "label": "Field kind", "description": "Input control family"}
    ]
  },
  "enums": {
    "FieldKind": ["Text", "Number", "Date"],
    "ReportStatus": ["Draft", "Review", "Final"]
  }
}
`

// contactFormPatternJSON is the starter pattern: a container root holding
// two text fields, with an occurrence rule on the Field type.
const contactFormPatternJSON = `{
  "name": "contact_form",
  "version": "1.0",
  "description": "Two-field contact form",
  "root": {
    "type": "Container",
    "children": [
      {
        "type": "Field",
        "requireOne": true,
        "restrictions": [{"property": "Kind", "value": "Text"}]
      },
      {
        "type": "Field",
        "restrictions": [{"property": "Kind", "value": "Text"}]
      }
    ]
  },
  "rules": [
    {"type": "Field", "min": 2, "max": 3}
  ]
}
`

const standardGitignore = `# Local object stores
*.db
*.db-wal
*.db-shm

# Logs
*.log
`

// NewStandardTemplate creates the default project template: memory driver,
// seeded schema, one starter pattern.
func NewStandardTemplate() *Template {
	return &Template{
		Name:        "standard",
		Description: "Local daemon with the in-memory provider and a seeded schema",
		Version:     "1.0.0",
		Variables: []*Variable{
			{
				Name:        "tcp_addr",
				Description: "Daemon listen address",
				Type:        VariableTypeString,
				Default:     "127.0.0.1:7171",
				Prompt:      "Listen address",
			},
			{
				Name:        "with_http",
				Description: "Expose the HTTP gateway",
				Type:        VariableTypeConfirm,
				Default:     false,
				Prompt:      "Enable the HTTP gateway?",
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
  format: console

server:
  tcp_addr: {{.Variables.tcp_addr}}
{{- if .Variables.with_http}}
  http_addr: 127.0.0.1:8080
{{- end}}

provider:
  driver: memory
  seed_file: schema/seed.json

patterns:
  dir: patterns
  watch: true
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

A metaforge project. The daemon serves the schema in ` + "`schema/seed.json`" + `
and the patterns in ` + "`patterns/`" + `.

## Quick start

` + "```sh" + `
metaforge serve &
metaforge types
metaforge create Form --param name=contact
metaforge build contact_form Form contact
metaforge validate contact_form Form contact
metaforge inspect Form contact
` + "```" + `
`,
			},
		},
	}
}
