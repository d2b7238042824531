package inspect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/template"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"cssinv/config"
	"cssinv/dom"
	"cssinv/invalidation"
	"cssinv/selectormap"
	"cssinv/state"
	"cssinv/stylist"
)

// Values are available to query output templates.
type Values struct {
	Kind       string
	Selector   string
	Offset     int
	Combinator string
	// only set for document state dependencies
	State string
}

// queryOptions describe the element change asked about on the command line.
type queryOptions struct {
	Tag            string
	Classes        []string
	RemovedClasses []string
	ID             string
	OldID          string
	States         []string
	DocumentStates []string
	Attributes     bool
}

func queryOptionsFromCommand(cmd *cli.Command) queryOptions {
	return queryOptions{
		Tag:            cmd.String("tag"),
		Classes:        cmd.StringSlice("class"),
		RemovedClasses: cmd.StringSlice("removed-class"),
		ID:             cmd.String("id"),
		OldID:          cmd.String("old-id"),
		States:         cmd.StringSlice("state"),
		DocumentStates: cmd.StringSlice("doc-state"),
		Attributes:     cmd.Bool("attr"),
	}
}

// change converts options to the element change and the changed document
// state.
func (q queryOptions) change() (*invalidation.ElementChange, dom.DocumentState, error) {
	ch := &invalidation.ElementChange{
		Element: selectormap.Features{
			ID:        q.ID,
			Classes:   q.Classes,
			LocalName: q.Tag,
		},
		ClassesAdded:           q.Classes,
		ClassesRemoved:         q.RemovedClasses,
		OldID:                  q.OldID,
		NewID:                  q.ID,
		OtherAttributesChanged: q.Attributes,
	}
	for _, name := range q.States {
		s, ok := dom.ElementStateByName(name)
		if !ok {
			return nil, 0, fmt.Errorf("unknown element state %q", name)
		}
		ch.StateChanged |= s
	}

	var docState dom.DocumentState
	for _, name := range q.DocumentStates {
		s, ok := dom.DocumentStateByName(name)
		if !ok {
			return nil, 0, fmt.Errorf("unknown document state %q", name)
		}
		docState |= s
	}

	if len(ch.ClassesAdded) == 0 && len(ch.ClassesRemoved) == 0 && ch.NewID == "" && ch.OldID == "" &&
		ch.StateChanged.IsEmpty() && docState.IsEmpty() && !ch.OtherAttributesChanged {
		return nil, 0, errors.New("nothing changed, specify at least one of --class, --removed-class, --id, --old-id, --state, --doc-state or --attr")
	}
	return ch, docState, nil
}

// Query is the action of the query command.
func Query(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("query")

	if err := applyOverrides(env, cmd); err != nil {
		return err
	}
	if cmd.Args().Len() == 0 {
		return errors.New("no stylesheets have been specified")
	}

	text := env.Cfg.Output.QueryTemplate
	if cmd.IsSet("format") {
		text = cmd.String("format")
	}
	tmpl, err := config.ParseQueryTemplate(text)
	if err != nil {
		return fmt.Errorf("unable to parse output template: %w", err)
	}

	ch, docState, err := queryOptionsFromCommand(cmd).change()
	if err != nil {
		return err
	}

	st, err := process(ctx, env, cmd.Args().Slice(), log)
	if err != nil {
		return err
	}
	return query(output(cmd), tmpl, st, ch, docState, log)
}

func query(w io.Writer, tmpl *template.Template, st *stylist.Stylist, ch *invalidation.ElementChange, docState dom.DocumentState, log *zap.Logger) error {
	m := st.Map()

	inv := m.Collect(ch, st.QuirksMode())
	count := 0
	for k := invalidation.Element; k <= invalidation.Parts; k++ {
		for _, dep := range inv.Of(k) {
			v := Values{
				Kind:     k.String(),
				Selector: dep.Selector.String(),
				Offset:   dep.Offset,
			}
			if c, ok := dep.Combinator(); ok {
				v.Combinator = c.String()
			}
			if err := writeLine(w, tmpl, v); err != nil {
				return err
			}
			count++
		}
	}

	if !docState.IsEmpty() {
		for dep := range m.DocumentStateDependencies(docState) {
			v := Values{
				Kind:     "document",
				Selector: dep.Selector.String(),
				State:    dep.State.String(),
			}
			if err := writeLine(w, tmpl, v); err != nil {
				return err
			}
			count++
		}
	}

	log.Info("Query completed",
		zap.Int("candidates", count),
		zap.Bool("self", inv.InvalidatesSelf()),
		zap.Stringer("quirks", st.QuirksMode()),
		zap.String("medium", st.Medium()))
	return nil
}

func writeLine(w io.Writer, tmpl *template.Template, v Values) error {
	if err := tmpl.Execute(w, v); err != nil {
		return fmt.Errorf("unable to write query result: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("unable to write query result: %w", err)
	}
	return nil
}

// writeSummary prints dependency counts and, on request, the whole map.
func writeSummary(w io.Writer, st *stylist.Stylist, dump bool) error {
	m := st.Map()
	if dump {
		_, err := io.WriteString(w, m.Dump())
		return err
	}
	_, err := fmt.Fprintf(w, "%d stylesheets, %d dependencies, flags=%s (quirks=%s, medium=%s)\n",
		len(st.Sheets()), m.Len(), m.Flags(), st.QuirksMode(), st.Medium())
	return err
}
