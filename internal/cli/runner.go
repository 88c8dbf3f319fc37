package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/tasks/internal/logging"
	"github.com/idilsaglam/tasks/internal/model"
	"github.com/idilsaglam/tasks/internal/store"
	"github.com/idilsaglam/tasks/internal/ui"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// Options tune output behavior from root flags.
type Options struct {
	Group bool // list grouped by pending/done
	Out   io.Writer
	Err   io.Writer
	Log   *log.Logger

	// Interactive runs the full-screen UI for `tui`.
	Interactive func(*store.Store) error
}

// Run loads the store and dispatches a subcommand. It returns an exit code
// (0 ok, 1 error, 2 usage).
func Run(args []string, st *store.Store, opt Options) int {
	if opt.Out == nil {
		opt.Out = io.Discard
	}
	if opt.Err == nil {
		opt.Err = io.Discard
	}
	if opt.Log == nil {
		opt.Log = logging.Discard()
	}

	if len(args) == 0 {
		PrintHelp(opt.Err)
		return ExitUsage
	}
	cmd, a := args[0], args[1:]

	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		PrintHelp(opt.Out)
		return ExitOK
	}

	if err := st.Load(); err != nil {
		if !errors.Is(err, store.ErrMalformed) {
			ui.Fail(opt.Err, err.Error())
			return ExitError
		}
		// treat unreadable data as absent and carry on
		ui.Hint(opt.Err, "warning: "+err.Error()+" (starting from an empty list)")
	}
	opt.Log.Debug("dispatch", "cmd", cmd, "args", len(a))

	switch cmd {
	case "ls", "list":
		return doList(st, a, opt)
	case "add":
		return doAdd(st, a, opt)
	case "done", "toggle":
		return withID(cmd, a, 1, opt, func(id int, _ []string) int { return doToggle(st, id, opt) })
	case "rm":
		return withID(cmd, a, 1, opt, func(id int, _ []string) int { return doRemove(st, id, opt) })
	case "edit":
		return withID(cmd, a, 2, opt, func(id int, rest []string) int {
			return doEdit(st, id, strings.Join(rest, " "), opt)
		})
	case "clear":
		return doClear(st, opt)
	case "tui":
		if opt.Interactive == nil {
			ui.Fail(opt.Err, "tui: not available")
			return ExitError
		}
		if err := opt.Interactive(st); err != nil {
			ui.Fail(opt.Err, "tui: "+err.Error())
			return ExitError
		}
		return ExitOK
	}

	ui.Fail(opt.Err, "unknown subcommand: "+cmd)
	fmt.Fprintln(opt.Err)
	PrintHelp(opt.Err)
	return ExitUsage
}

func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `tasks - a persistent task list

Usage:
  tasks [root flags] <subcommand> [args]

Subcommands:
  add [-c category] <title...>   Add a new task
  ls [-f all|active|completed]   List tasks
  done <id>                      Toggle completion of a task
  edit <id> <title...>           Replace a task's title
  rm <id>                        Remove a task
  clear                          Remove all completed tasks
  tui                            Interactive list

Root flags:
  -config <file>   config file (TOML)
  -backend <name>  storage backend: file, sqlite or memory
  -path <path>     storage location
  -log-level <l>   debug, info, warn or error
  -group           group ls output by pending/done
  -theme <name>    classic, neon or mono

Examples:
  tasks add "Buy milk"
  tasks add -c work "Write report"
  tasks ls -f active
  tasks done 2
  tasks rm 3
`)
}

// -------------- subcommand impls ----------------

// withID parses the leading id argument; need is the minimum arg count.
func withID(cmd string, a []string, need int, opt Options, fn func(int, []string) int) int {
	if len(a) < need || (need == 1 && len(a) != 1) {
		usage := "usage: tasks " + cmd + " <id>"
		if cmd == "edit" {
			usage = "usage: tasks edit <id> <title...>"
		}
		ui.Fail(opt.Err, usage)
		return ExitUsage
	}
	id, err := strconv.Atoi(a[0])
	if err != nil {
		ui.Fail(opt.Err, cmd+": not a number: "+a[0])
		return ExitUsage
	}
	return fn(id, a[1:])
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func doList(st *store.Store, a []string, opt Options) int {
	fs := newFlagSet("ls")
	filter := fs.String("f", "all", "")
	fs.StringVar(filter, "filter", "all", "")
	if err := fs.Parse(a); err != nil {
		ui.Fail(opt.Err, "ls: "+err.Error())
		return ExitUsage
	}
	f, err := model.ParseFilter(*filter)
	if err != nil {
		ui.Fail(opt.Err, "ls: "+err.Error())
		return ExitUsage
	}
	st.SetFilter(f)

	t := ui.Current()
	s := st.Stats()
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		t.Title.Render("Tasks"),
		t.Success.Render(t.SymDone), s.Done,
		t.Pending.Render(t.SymPending), s.Pending,
		t.Accent.Render("Total"), s.Total,
	)
	if f != model.FilterAll {
		header += "  " + t.Muted.Render("["+f.String()+"]")
	}

	var lines []string
	lines = append(lines, header)
	lines = append(lines, t.Muted.Render(ui.ProgressBar(s.Done, s.Total, 28)))
	lines = append(lines, "")

	tasks := st.FilteredTasks()
	if opt.Group {
		lines = append(lines, groupLines(tasks)...)
	} else {
		lines = append(lines, flatLines(tasks)...)
	}
	lines = append(lines, "")
	lines = append(lines, t.Muted.Render("Tip: add with `tasks add \"Buy milk\"`"))
	fmt.Fprintln(opt.Out, ui.Panel(lines))
	return ExitOK
}

func doAdd(st *store.Store, a []string, opt Options) int {
	fs := newFlagSet("add")
	category := fs.String("c", "", "")
	fs.StringVar(category, "category", "", "")
	if err := fs.Parse(a); err != nil {
		ui.Fail(opt.Err, "add: "+err.Error())
		return ExitUsage
	}
	title := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if title == "" {
		ui.Fail(opt.Err, "usage: tasks add [-c category] <title...>")
		return ExitUsage
	}
	t, err := st.AddTask(title, strings.TrimSpace(*category))
	if err != nil {
		ui.Fail(opt.Err, err.Error())
		return ExitError
	}
	ui.OK(opt.Out, fmt.Sprintf("added #%d", t.ID))
	return ExitOK
}

func doToggle(st *store.Store, id int, opt Options) int {
	if !exists(st, id, opt) {
		return ExitOK
	}
	if err := st.ToggleTask(id); err != nil {
		ui.Fail(opt.Err, err.Error())
		return ExitError
	}
	t, _ := st.Get(id)
	if t.Completed {
		ui.OK(opt.Out, fmt.Sprintf("completed #%d", id))
	} else {
		ui.OK(opt.Out, fmt.Sprintf("reopened #%d", id))
	}
	return ExitOK
}

func doRemove(st *store.Store, id int, opt Options) int {
	if !exists(st, id, opt) {
		return ExitOK
	}
	if err := st.DeleteTask(id); err != nil {
		ui.Fail(opt.Err, err.Error())
		return ExitError
	}
	ui.OK(opt.Out, fmt.Sprintf("removed #%d", id))
	return ExitOK
}

func doEdit(st *store.Store, id int, title string, opt Options) int {
	title = strings.TrimSpace(title)
	if title == "" {
		ui.Fail(opt.Err, "edit: empty title")
		return ExitUsage
	}
	if !exists(st, id, opt) {
		return ExitOK
	}
	if err := st.EditTask(id, title); err != nil {
		ui.Fail(opt.Err, err.Error())
		return ExitError
	}
	ui.OK(opt.Out, fmt.Sprintf("edited #%d", id))
	return ExitOK
}

func doClear(st *store.Store, opt Options) int {
	before := st.Stats().Done
	if err := st.ClearCompleted(); err != nil {
		ui.Fail(opt.Err, err.Error())
		return ExitError
	}
	ui.OK(opt.Out, fmt.Sprintf("cleared %d completed", before))
	return ExitOK
}

// exists reports whether id is known. Unknown ids are a no-op for the
// store; we only tell the user.
func exists(st *store.Store, id int, opt Options) bool {
	if _, ok := st.Get(id); ok {
		return true
	}
	ui.Hint(opt.Err, fmt.Sprintf("no task #%d (nothing changed). Hint: run `tasks ls` to see ids", id))
	return false
}

// -------------- rendering helpers --------------

func flatLines(tasks []model.Task) []string {
	t := ui.Current()
	if len(tasks) == 0 {
		return []string{t.Muted.Render("no tasks")}
	}
	out := make([]string, 0, len(tasks))
	for _, it := range tasks {
		box := t.Muted.Render(ui.Box(false))
		if it.Completed {
			box = t.Success.Render(ui.Box(true))
		}
		line := fmt.Sprintf("%s %s %s",
			t.Muted.Render(fmt.Sprintf("%3d.", it.ID)), box, ui.Truncate(it.Title, 80))
		if it.Category != "" {
			line += "  " + t.Category.Render(it.Category)
		}
		out = append(out, line)
	}
	return out
}

func groupLines(tasks []model.Task) []string {
	t := ui.Current()
	pend := store.FilterTasks(tasks, model.FilterActive)
	done := store.FilterTasks(tasks, model.FilterCompleted)

	var lines []string
	lines = append(lines, t.Accent.Render("Pending"))
	if len(pend) == 0 {
		lines = append(lines, t.Muted.Render("(none)"))
	} else {
		lines = append(lines, flatLines(pend)...)
	}
	lines = append(lines, "")
	lines = append(lines, t.Accent.Render("Done"))
	if len(done) == 0 {
		lines = append(lines, t.Muted.Render("(none)"))
	} else {
		lines = append(lines, flatLines(done)...)
	}
	return lines
}
