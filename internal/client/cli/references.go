package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/dmitrijs2005/obyektivka/internal/client/models"
)

func (a *App) ListReferences(ctx context.Context, _ []string) error {
	refs, err := a.refs.List(ctx)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		fmt.Fprintln(a.out, "No references.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tYEAR\tTYPE")
	for _, r := range refs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", r.ID, r.Title, r.Author, r.Year, r.Type)
	}
	return tw.Flush()
}

func (a *App) ShowReference(ctx context.Context, args []string) error {
	id, err := parseID(args, "ref <id>")
	if err != nil {
		return err
	}
	r, err := a.refs.Get(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "#%d %s\n", r.ID, r.Title)
	fmt.Fprintf(a.out, "Author: %s\n", r.Author)
	fmt.Fprintf(a.out, "Year:   %d\n", r.Year)
	fmt.Fprintf(a.out, "Type:   %s\n", r.Type)
	return nil
}

func (a *App) CreateReference(ctx context.Context, _ []string) error {
	var (
		in  models.ReferenceInput
		err error
	)
	if in.Title, err = GetSimpleText(a.reader, "Title", a.out); err != nil {
		return err
	}
	if in.Author, err = GetSimpleText(a.reader, "Author", a.out); err != nil {
		return err
	}
	if in.Year, err = GetInt(a.reader, "Year", 0, a.out); err != nil {
		return err
	}
	typ, err := GetWithDefault(a.reader, "Type (book, article, website, other)", string(models.ReferenceBook), a.out)
	if err != nil {
		return err
	}
	in.Type = models.ReferenceType(typ)

	r, err := a.refs.Create(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Reference #%d created.\n", r.ID)
	return nil
}

// EditReference prompts for every field with the current value as default
// and sends only the fields that changed.
func (a *App) EditReference(ctx context.Context, args []string) error {
	id, err := parseID(args, "ref-edit <id>")
	if err != nil {
		return err
	}
	cur, err := a.refs.Get(ctx, id)
	if err != nil {
		return err
	}

	var patch models.ReferencePatch

	title, err := GetWithDefault(a.reader, "Title", cur.Title, a.out)
	if err != nil {
		return err
	}
	if title != cur.Title {
		patch.Title = &title
	}

	author, err := GetWithDefault(a.reader, "Author", cur.Author, a.out)
	if err != nil {
		return err
	}
	if author != cur.Author {
		patch.Author = &author
	}

	year, err := GetInt(a.reader, "Year", cur.Year, a.out)
	if err != nil {
		return err
	}
	if year != cur.Year {
		patch.Year = &year
	}

	typ, err := GetWithDefault(a.reader, "Type", string(cur.Type), a.out)
	if err != nil {
		return err
	}
	if t := models.ReferenceType(typ); t != cur.Type {
		if !t.Valid() {
			return models.FieldErrors{"type": {"must be one of book, article, website, other"}}
		}
		patch.Type = &t
	}

	if patch.Empty() {
		fmt.Fprintln(a.out, "Nothing to change.")
		return nil
	}
	r, err := a.refs.Update(ctx, id, patch)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Reference #%d updated.\n", r.ID)
	return nil
}

func (a *App) DeleteReference(ctx context.Context, args []string) error {
	id, err := parseID(args, "ref-delete <id>")
	if err != nil {
		return err
	}
	ok, err := a.confirm(ctx, "Delete reference #"+strconv.FormatInt(id, 10)+"?")
	if err != nil || !ok {
		return err
	}
	if err := a.refs.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Reference #%d deleted.\n", id)
	return nil
}
