package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jasonwyatt/wasmkit"
	"github.com/jasonwyatt/wasmkit/api"
	"github.com/jasonwyatt/wasmkit/linker"
	"github.com/jasonwyatt/wasmkit/runtime"
	"github.com/jasonwyatt/wasmkit/wasm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
	funcStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#98FB98"))
	typeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#7D56F4"))
	resultStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl <module>",
		Short: "Interactively select and call one of a module's exported functions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := tea.NewProgram(newReplModel(args[0]), tea.WithAltScreen())
			_, err := p.Run()
			return err
		},
	}
}

type replFunc struct {
	name string
	ft   wasm.FuncType
}

type replState int

const (
	stateSelectFunc replState = iota
	stateInputArgs
	stateShowResult
)

type replModel struct {
	err      error
	path     string
	prog     *linker.Program
	funcs    []replFunc
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    replState
	result   string
}

func newReplModel(path string) *replModel {
	return &replModel{path: path, state: stateSelectFunc}
}

type loadedMsg struct {
	err   error
	prog  *linker.Program
	funcs []replFunc
}

type callResultMsg struct {
	err    error
	result string
}

func (m *replModel) Init() tea.Cmd {
	return m.load
}

func (m *replModel) load() tea.Msg {
	mf, err := readModFile(m.path)
	if err != nil {
		return loadedMsg{err: err}
	}

	var funcs []replFunc
	for _, exp := range mf.Module.Exports {
		if exp.Kind != wasm.KindFunc {
			continue
		}
		ft, ok := mf.Module.GetFuncType(exp.Idx)
		if !ok {
			continue
		}
		funcs = append(funcs, replFunc{name: exp.Name, ft: ft})
	}
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].name < funcs[j].name })

	rt := wasmkit.New()
	if err := rt.LoadModule("main", mf.Module); err != nil {
		return loadedMsg{err: err}
	}
	prog, err := rt.Build(context.Background())
	if err != nil {
		return loadedMsg{err: err}
	}

	return loadedMsg{funcs: funcs, prog: prog}
}

func (m *replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.funcs) == 0 {
					break
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.call
				}
				m.state = stateInputArgs
			case stateInputArgs:
				return m, m.call
			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.funcs = msg.funcs
		m.prog = msg.prog

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m *replModel) prepareInputs() {
	f := m.funcs[m.selected]
	m.inputs = make([]textinput.Model, len(f.ft.Params))
	for i, p := range f.ft.Params {
		ti := textinput.New()
		ti.Placeholder = api.ValueTypeName(p)
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 30
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *replModel) call() tea.Msg {
	f := m.funcs[m.selected]
	args := make([]runtime.Value, len(m.inputs))
	for i, input := range m.inputs {
		v, err := parseTypedValue(input.Value(), f.ft.Params[i])
		if err != nil {
			return callResultMsg{err: err}
		}
		args[i] = v
	}

	results, err := m.prog.Call(context.Background(), "main", f.name, args)
	if err != nil {
		return callResultMsg{err: err}
	}
	var parts []string
	for i, r := range results {
		parts = append(parts, fmt.Sprintf("%s = %d", api.ValueTypeName(f.ft.Results[i]), uint64(r)))
	}
	return callResultMsg{result: strings.Join(parts, ", ")}
}

func parseTypedValue(s string, t wasm.ValType) (runtime.Value, error) {
	switch t {
	case wasm.ValF32:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return 0, err
		}
		return runtime.ValueF32(float32(v)), nil
	case wasm.ValF64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		return runtime.ValueF64(v), nil
	case wasm.ValI64:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, err
		}
		return runtime.ValueI64(v), nil
	default: // wasm.ValI32
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return 0, err
		}
		return runtime.ValueI32(int32(v)), nil
	}
}

func (m *replModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if len(m.funcs) == 0 {
		return "Loading module..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("wasmkit repl"))
	b.WriteString(" ")
	b.WriteString(m.path)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function to call:\n\n")
		for i, f := range m.funcs {
			cursor := "  "
			line := cursor + m.formatFunc(f)
			if i == m.selected {
				line = selectedStyle.Render("> " + m.formatFunc(f))
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("up/down select - enter call - q quit"))

	case stateInputArgs:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(f.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(api.ValueTypeName(f.ft.Params[i])))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field - enter call - esc back"))

	case stateShowResult:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(f.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("trap: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue - q quit"))
	}
	return b.String()
}

func (m *replModel) formatFunc(f replFunc) string {
	params := make([]string, len(f.ft.Params))
	for i, p := range f.ft.Params {
		params[i] = typeStyle.Render(api.ValueTypeName(p))
	}
	results := make([]string, len(f.ft.Results))
	for i, r := range f.ft.Results {
		results[i] = typeStyle.Render(api.ValueTypeName(r))
	}
	out := funcStyle.Render(f.name) + "(" + strings.Join(params, ", ") + ")"
	if len(results) > 0 {
		out += " -> (" + strings.Join(results, ", ") + ")"
	}
	return out
}
