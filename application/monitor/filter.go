package monitor

import (
	"container-monitor/application/docker"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pkg/errors"
)

// ContainerEnv is what a filter expression sees of a container.
type ContainerEnv struct {
	ID     string `expr:"id"`
	Name   string `expr:"name"`
	Image  string `expr:"image"`
	State  string `expr:"state"`
	Status string `expr:"status"`
}

// Filter decides whether a container is monitored.
type Filter func(c docker.Container) bool

// MatchAll keeps every container.
func MatchAll(docker.Container) bool { return true }

// CompileFilter compiles a boolean expression such as
// `state == "running" && name startsWith "web"`.
// Empty src matches every container. A container whose evaluation fails is not matched.
func CompileFilter(src string) (Filter, error) {
	if src == "" {
		return MatchAll, nil
	}

	program, err := expr.Compile(src, expr.Env(ContainerEnv{}), expr.AsBool())
	if err != nil {
		return nil, errors.Wrapf(err, "compiling filter %q", src)
	}

	return func(c docker.Container) bool {
		return evaluate(program, c)
	}, nil
}

func evaluate(program *vm.Program, c docker.Container) bool {
	env := ContainerEnv{
		ID:     c.ID,
		Name:   c.Name(),
		Image:  c.Image,
		State:  c.State,
		Status: c.Status,
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return false
	}

	matched, ok := result.(bool)
	return ok && matched
}
