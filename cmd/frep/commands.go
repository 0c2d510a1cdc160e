package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/frep/pkg/engine"
	"github.com/chazu/frep/pkg/eval"
	"github.com/chazu/frep/pkg/expr"
	"github.com/chazu/frep/pkg/simplify"
)

// errFailed signals that the command already reported its problems.
var errFailed = errors.New("one or more shapes failed")

// load evaluates the script at path and reports script errors to stderr.
func (c *cli) load(cmd *cobra.Command, path string) (*engine.Design, error) {
	src, err := readSource(path, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	d, evalErrs, err := c.app().Load(src)
	if err != nil {
		return nil, err
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", path, e.Error())
		}
		return nil, fmt.Errorf("%s: %d script error(s)", path, len(evalErrs))
	}
	return d, nil
}

// selectShapes returns the shapes named in only, or every shape.
func selectShapes(d *engine.Design, only []string) ([]engine.Shape, error) {
	if len(only) == 0 {
		return d.Shapes, nil
	}
	out := make([]engine.Shape, 0, len(only))
	for _, name := range only {
		s, ok := d.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("no shape named %q", name)
		}
		out = append(out, s)
	}
	return out, nil
}

// parsePoint parses "x,y,z".
func parsePoint(s string) ([3]float64, error) {
	var p [3]float64
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return p, fmt.Errorf("point %q: want x,y,z", s)
	}
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return p, fmt.Errorf("point %q: %w", s, err)
		}
		p[i] = v
	}
	return p, nil
}

func newEvalCmd(c *cli) *cobra.Command {
	var (
		at     string
		mode   string
		radius float64
		only   []string
	)
	cmd := &cobra.Command{
		Use:   "eval FILE",
		Short: "Evaluate shapes at a point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePoint(at)
			if err != nil {
				return err
			}
			m, err := eval.ParseMode(mode)
			if err != nil {
				return err
			}
			policy, err := c.cfg.DomainPolicy()
			if err != nil {
				return err
			}
			d, err := c.load(cmd, args[0])
			if err != nil {
				return err
			}
			defer d.Close()
			shapes, err := selectShapes(d, only)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := false
			for _, s := range shapes {
				ctx := d.At(p[0], p[1], p[2])
				if m == eval.ModeInterval && radius > 0 {
					for i, v := range []expr.Var{expr.VarX, expr.VarY, expr.VarZ} {
						ctx.WithInterval(v, eval.Interval{Lo: p[i] - radius, Hi: p[i] + radius})
					}
				}
				res, err := eval.Evaluate(s.Tree, ctx, m, eval.WithPolicy(policy))
				if err != nil {
					fmt.Fprintf(out, "%s\terror: %v\n", s.Name, err)
					failed = true
					continue
				}
				fmt.Fprintf(out, "%s\t%s\n", s.Name, formatResult(d.Arena, res))
			}
			if failed {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "0,0,0", "evaluation point as x,y,z")
	cmd.Flags().StringVar(&mode, "mode", eval.ModeScalar.String(), "evaluation mode (scalar, interval, gradient)")
	cmd.Flags().Float64Var(&radius, "radius", 0, "half side of the box evaluated in interval mode")
	cmd.Flags().StringSliceVar(&only, "shape", nil, "evaluate only the named shapes")
	return cmd
}

func formatResult(a *expr.Arena, res eval.Result) string {
	switch res.Mode {
	case eval.ModeInterval:
		return res.Interval.String()
	case eval.ModeGradient:
		vars := slices.Sorted(maps.Keys(res.Gradient))
		parts := make([]string, len(vars))
		for i, v := range vars {
			parts[i] = fmt.Sprintf("d%s=%g", a.VarName(v), res.Gradient[v])
		}
		return fmt.Sprintf("%g\t%s", res.Value, strings.Join(parts, " "))
	}
	return strconv.FormatFloat(res.Value, 'g', -1, 64)
}

func newSimplifyCmd(c *cli) *cobra.Command {
	var stable bool
	cmd := &cobra.Command{
		Use:   "simplify FILE",
		Short: "Print the simplified tree of every shape",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.load(cmd, args[0])
			if err != nil {
				return err
			}
			defer d.Close()

			var opts []simplify.Option
			if stable {
				opts = append(opts, simplify.WithStableTies())
			}
			out := cmd.OutOrStdout()
			for _, s := range d.Shapes {
				t, err := simplify.Simplify(s.Tree, opts...)
				if err != nil {
					return fmt.Errorf("shape %q: %w", s.Name, err)
				}
				fmt.Fprintf(out, "%s: %d -> %d nodes\n  %s\n", s.Name, s.Tree.Size(), t.Size(), t)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&stable, "stable-ties", false, "keep operand order of min and max")
	return cmd
}

func newMeshCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "mesh FILE",
		Short: "Mesh every shape and report triangle counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			res := c.app().Build(cmd.Context(), src)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				if err := enc.Encode(res); err != nil {
					return err
				}
			} else {
				writeReport(cmd.ErrOrStderr(), args[0], res)
				for _, m := range res.Meshes {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d triangles\t%d vertices\n",
						m.PartName, len(m.Indices)/3, len(m.Vertices)/3)
				}
			}
			if !res.OK() {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "write the meshes as JSON")
	return cmd
}

func newCheckCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE",
		Short: "Validate every shape without meshing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.load(cmd, args[0])
			if err != nil {
				return err
			}
			defer d.Close()

			vr := engine.Validate(d, c.app().searchBox())
			out := cmd.OutOrStdout()
			for _, e := range vr.Errors {
				fmt.Fprintln(out, e.Error())
			}
			for _, w := range vr.Warnings {
				fmt.Fprintln(out, w.Error())
			}
			if !vr.OK() {
				return errFailed
			}
			fmt.Fprintf(out, "%d shapes ok\n", len(d.Shapes))
			return nil
		},
	}
}

func writeReport(w io.Writer, path string, res EvalResult) {
	for _, e := range res.Errors {
		switch {
		case e.Shape != "":
			fmt.Fprintf(w, "%s: error: shape %q: %s\n", path, e.Shape, e.Message)
		case e.Line > 0:
			fmt.Fprintf(w, "%s:%d: error: %s\n", path, e.Line, e.Message)
		default:
			fmt.Fprintf(w, "%s: error: %s\n", path, e.Message)
		}
	}
	for _, e := range res.Warnings {
		fmt.Fprintf(w, "%s: warning: shape %q: %s\n", path, e.Shape, e.Message)
	}
}
