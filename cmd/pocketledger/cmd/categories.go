package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jmcleod/pocketledger/internal/i18n"
	"github.com/jmcleod/pocketledger/model"
)

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func printCategories(w io.Writer, cats []model.Category) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tKIND")
	for _, c := range cats {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", c.ID, c.Name, c.Kind)
	}
	tw.Flush()
}

func newCategoriesCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category", "cat"},
		Short:   "Manage income and expense categories",
	}

	var listKind string
	list := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			var kind model.Kind
			if listKind != "" {
				k, err := model.ParseKind(listKind)
				if err != nil {
					return err
				}
				kind = k
			}
			return o.withSession(cmd, func(a *app) error {
				cats, err := a.client.Categories.List(cmd.Context())
				if err != nil {
					return errors.New(a.session.Explain(cmd.Context(), err, i18n.LoadCategoriesFailed))
				}
				if kind != "" {
					cats = model.FilterByKind(cats, kind)
				}
				if cats == nil {
					cats = []model.Category{}
				}
				return o.emit(cmd, cats, func(w io.Writer) { printCategories(w, cats) })
			})
		},
	}
	list.Flags().StringVarP(&listKind, "kind", "k", "", "Only receita (income) or despesa (expense)")

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show one category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return o.withSession(cmd, func(a *app) error {
				c, err := a.client.Categories.Get(cmd.Context(), id)
				if err != nil {
					return errors.New(a.session.Explain(cmd.Context(), err, i18n.LoadCategoryFailed))
				}
				return o.emit(cmd, c, func(w io.Writer) { printCategories(w, []model.Category{*c}) })
			})
		},
	}

	var name, kind string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a category",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := model.ParseKind(kind)
			if err != nil {
				return err
			}
			return o.withSession(cmd, func(a *app) error {
				c, err := a.client.Categories.Create(cmd.Context(), model.CategoryInput{Name: name, Kind: k})
				if err != nil {
					return errors.New(a.session.Explain(cmd.Context(), err, i18n.CreateCategoryFailed))
				}
				return o.emit(cmd, c, func(w io.Writer) { printCategories(w, []model.Category{*c}) })
			})
		},
	}
	create.Flags().StringVarP(&name, "name", "n", "", "Category name")
	create.Flags().StringVarP(&kind, "kind", "k", "", "receita (income) or despesa (expense)")

	update := &cobra.Command{
		Use:   "update ID",
		Short: "Rename a category or change its kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return o.withSession(cmd, func(a *app) error {
				ctx := cmd.Context()
				current, err := a.client.Categories.Get(ctx, id)
				if err != nil {
					return errors.New(a.session.Explain(ctx, err, i18n.LoadCategoryFailed))
				}
				in := model.CategoryInput{Name: current.Name, Kind: current.Kind}
				if cmd.Flags().Changed("name") {
					in.Name = name
				}
				if cmd.Flags().Changed("kind") {
					if in.Kind, err = model.ParseKind(kind); err != nil {
						return err
					}
				}
				c, err := a.client.Categories.Update(ctx, id, in)
				if err != nil {
					return errors.New(a.session.Explain(ctx, err, i18n.UpdateCategoryFailed))
				}
				return o.emit(cmd, c, func(w io.Writer) { printCategories(w, []model.Category{*c}) })
			})
		},
	}
	update.Flags().StringVarP(&name, "name", "n", "", "New name")
	update.Flags().StringVarP(&kind, "kind", "k", "", "New kind")

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return o.withSession(cmd, func(a *app) error {
				conf, err := a.client.Categories.Delete(cmd.Context(), id)
				if err != nil {
					return errors.New(a.session.Explain(cmd.Context(), err, i18n.DeleteCategoryFailed))
				}
				return o.emit(cmd, conf, func(w io.Writer) { line(w, "%s", a.printer.Text(i18n.Deleted)) })
			})
		},
	}

	cmd.AddCommand(list, get, create, update, del)
	return cmd
}
