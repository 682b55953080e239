// Package workflow renders the GitHub Actions workflow equivalent to the
// release procedure, for repositories that prefer to run it natively.
package workflow

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hydragram/releaser/internal/constants"
	"github.com/hydragram/releaser/internal/trigger"
)

// Action versions used by the rendered workflow.
const (
	checkoutAction    = "actions/checkout@v4"
	setupPythonAction = "actions/setup-python@v5"
	defaultRunsOn     = "ubuntu-latest"
)

// Options describe the workflow to render.
type Options struct {
	Name             string
	Package          string
	Policy           trigger.Policy
	PythonVersion    string
	Tools            []string
	UpgradeInstaller bool
	CleanPaths       []string
	OutDir           string
	SecretName       string
	Username         string
	RepositoryURL    string
	// Concurrency adds a per-package concurrency group so two releases of
	// the same package never overlap.
	Concurrency bool
	RunsOn      string
}

func (o *Options) applyDefaults() {
	if o.Name == "" {
		o.Name = "Release"
	}
	if o.PythonVersion == "" {
		o.PythonVersion = constants.DefaultPythonVersion
	}
	if len(o.Tools) == 0 {
		o.Tools = []string{"build", "twine"}
	}
	if len(o.CleanPaths) == 0 {
		o.CleanPaths = []string{constants.DistDir, constants.BuildDir, constants.EggInfoPattern}
	}
	if o.OutDir == "" {
		o.OutDir = constants.DistDir
	}
	o.CleanPaths = withOutDir(o.CleanPaths, o.OutDir)
	if o.SecretName == "" {
		o.SecretName = constants.DefaultSecretName
	}
	if o.Username == "" {
		o.Username = constants.TokenUsername
	}
	if o.RunsOn == "" {
		o.RunsOn = defaultRunsOn
	}
}

// Render returns the workflow YAML. Keys keep a fixed order.
func Render(opts Options) ([]byte, error) {
	opts.applyDefaults()
	if len(opts.Policy.Tags) == 0 && len(opts.Policy.Branches) == 0 {
		opts.Policy = trigger.DefaultPolicy()
	}

	push := mapping()
	if len(opts.Policy.Tags) > 0 {
		push.add("tags", quotedSeq(opts.Policy.Tags))
	}
	if len(opts.Policy.Branches) > 0 {
		push.add("branches", quotedSeq(opts.Policy.Branches))
	}

	root := mapping()
	root.add("name", scalar(opts.Name))
	root.add("on", mapping().add("push", push.node()).node())
	root.add("permissions", mapping().add("contents", scalar("read")).node())
	if opts.Concurrency {
		group := "release"
		if opts.Package != "" {
			group += "-" + opts.Package
		}
		root.add("concurrency", mapping().
			add("group", scalar(group)).
			add("cancel-in-progress", boolean(false)).
			node())
	}

	job := mapping().
		add("runs-on", scalar(opts.RunsOn)).
		add("steps", sequence(stepNodes(opts)...))
	root.add("jobs", mapping().add("release", job.node()).node())

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root.node()}}); err != nil {
		return nil, fmt.Errorf("encode workflow: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode workflow: %w", err)
	}
	return buf.Bytes(), nil
}

func stepNodes(opts Options) []*yaml.Node {
	var install []string
	if opts.UpgradeInstaller {
		install = append(install, "python -m pip install --upgrade pip")
	}
	install = append(install, "python -m pip install --upgrade "+strings.Join(opts.Tools, " "))

	upload := "python -m twine upload --non-interactive"
	if opts.RepositoryURL != "" {
		upload += " --repository-url " + opts.RepositoryURL
	}
	upload += " " + opts.OutDir + "/*"

	return []*yaml.Node{
		mapping().
			add("name", scalar("Checkout")).
			add("uses", scalar(checkoutAction)).
			add("with", mapping().add("persist-credentials", boolean(false)).node()).
			node(),
		mapping().
			add("name", scalar("Set up Python")).
			add("uses", scalar(setupPythonAction)).
			add("with", mapping().add("python-version", quoted(opts.PythonVersion)).node()).
			node(),
		runStep("Install build tools", install),
		runStep("Clean build outputs", cleanCommands(opts.CleanPaths)),
		runStep("Build distributions", []string{"python -m build --outdir " + opts.OutDir + " ."}),
		mapping().
			add("name", scalar("Publish to registry")).
			add("env", mapping().
				add(constants.TwineUsernameEnv, scalar(opts.Username)).
				add(constants.TwinePasswordEnv, scalar("${{ secrets."+opts.SecretName+" }}")).
				node()).
			add("run", scalar(upload)).
			node(),
	}
}

// withOutDir appends outDir to paths unless already listed.
func withOutDir(paths []string, outDir string) []string {
	out := append([]string(nil), paths...)
	for _, p := range out {
		if strings.TrimSuffix(p, "/") == strings.TrimSuffix(outDir, "/") {
			return out
		}
	}
	return append(out, outDir)
}

// cleanCommands turns clean paths into shell commands. A leading **/
// becomes a find over the whole tree.
func cleanCommands(paths []string) []string {
	var plain, cmds []string
	for _, p := range paths {
		if name, ok := strings.CutPrefix(p, "**/"); ok {
			cmds = append(cmds, fmt.Sprintf("find . -name '%s' -prune -exec rm -rf {} +", name))
			continue
		}
		plain = append(plain, p)
	}
	if len(plain) > 0 {
		cmds = append([]string{"rm -rf " + strings.Join(plain, " ")}, cmds...)
	}
	return cmds
}

func runStep(name string, lines []string) *yaml.Node {
	run := scalar(strings.Join(lines, "\n"))
	if len(lines) > 1 {
		run.Value += "\n"
		run.Style = yaml.LiteralStyle
	}
	return mapping().add("name", scalar(name)).add("run", run).node()
}

// mappingBuilder accumulates ordered key/value pairs.
type mappingBuilder struct {
	n *yaml.Node
}

func mapping() *mappingBuilder {
	return &mappingBuilder{n: &yaml.Node{Kind: yaml.MappingNode}}
}

func (m *mappingBuilder) add(key string, value *yaml.Node) *mappingBuilder {
	m.n.Content = append(m.n.Content, scalar(key), value)
	return m
}

func (m *mappingBuilder) node() *yaml.Node {
	return m.n
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func quoted(v string) *yaml.Node {
	n := scalar(v)
	n.Style = yaml.DoubleQuotedStyle
	return n
}

func boolean(v bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: fmt.Sprintf("%t", v)}
}

func sequence(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Content: items}
}

func quotedSeq(values []string) *yaml.Node {
	items := make([]*yaml.Node, len(values))
	for i, v := range values {
		items[i] = quoted(v)
	}
	return sequence(items...)
}
