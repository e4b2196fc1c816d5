package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dmitrijs2005/obyektivka/internal/client/client"
	"github.com/dmitrijs2005/obyektivka/internal/client/models"
	"github.com/dmitrijs2005/obyektivka/internal/filex"
	"github.com/dmitrijs2005/obyektivka/internal/imagex"
	"github.com/dmitrijs2005/obyektivka/internal/waitx"
)

// ListDocuments prints one page of documents. Admins see every document
// unless --filter says otherwise.
func (a *App) ListDocuments(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("docs", flag.ContinueOnError)
	fs.SetOutput(a.out)
	filter := fs.String("filter", "", "all or mine")
	search := fs.String("search", "", "match the owner's name")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	p := client.ListParams{Filter: *filter, Search: *search, Page: *page}
	if p.Filter == "" {
		p.Filter = client.FilterMine
		if u := a.session.User(); u != nil && u.IsAdmin() {
			p.Filter = client.FilterAll
		}
	}
	if p.Filter != client.FilterAll && p.Filter != client.FilterMine {
		return fmt.Errorf("unknown filter %q, want %s or %s", p.Filter, client.FilterAll, client.FilterMine)
	}

	res, err := a.docs.List(ctx, p)
	if err != nil {
		return err
	}
	if len(res.Data) == 0 {
		fmt.Fprintln(a.out, "No documents.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tUPDATED")
	for _, d := range res.Data {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", d.ID, d.Title(), d.Status, d.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Page %d of %d, %d total.\n", res.CurrentPage, res.LastPage, res.Total)
	if res.HasNext() {
		fmt.Fprintf(a.out, "Next page: docs --page %d\n", res.CurrentPage+1)
	}
	return nil
}

func (a *App) ShowDocument(ctx context.Context, args []string) error {
	id, err := parseID(args, "doc <id>")
	if err != nil {
		return err
	}
	d, err := a.docs.Get(ctx, id)
	if err != nil {
		return err
	}
	a.printDocument(d)
	return nil
}

func (a *App) printDocument(d models.Document) {
	w := a.out
	fmt.Fprintf(w, "#%d %s\n", d.ID, d.Title())
	fmt.Fprintf(w, "Status: %s, updated %s\n", d.Status, d.UpdatedAt.Local().Format("2006-01-02 15:04"))

	if p := d.PersonalInformation; p != nil {
		fmt.Fprintln(w, "\nShaxsiy ma'lumotlar")
		fmt.Fprintf(w, "  F.I.Sh.:          %s\n", p.FullName())
		fmt.Fprintf(w, "  Tug'ilgan sana:   %s\n", p.TugilganSana)
		fmt.Fprintf(w, "  Tug'ilgan joyi:   %s\n", p.TugilganJoyi)
		fmt.Fprintf(w, "  Millati:          %s\n", p.Millati)
		if p.Partiyaviyligi != "" {
			fmt.Fprintf(w, "  Partiyaviyligi:   %s\n", p.Partiyaviyligi)
		}
		if p.XalqDeputatlari != "" {
			fmt.Fprintf(w, "  Xalq deputatlari: %s\n", p.XalqDeputatlari)
		}
		if p.PhotoPath != "" {
			fmt.Fprintf(w, "  Rasm:             %s\n", a.storageURL(p.PhotoPath))
		}
	}

	if len(d.WorkExperiences) > 0 {
		fmt.Fprintln(w, "\nMehnat faoliyati")
		for _, e := range d.WorkExperiences {
			end := e.EndDate
			if end == "" {
				end = "h.v."
			}
			fmt.Fprintf(w, "  %s - %s  %s\n", e.StartDate, end, e.Info)
		}
	}

	if len(d.EducationRecords) > 0 {
		fmt.Fprintln(w, "\nMa'lumoti")
		for _, e := range d.EducationRecords {
			fmt.Fprintf(w, "  %s", e.Malumoti)
			if e.Tamomlagan != "" {
				fmt.Fprintf(w, ", %s", e.Tamomlagan)
			}
			if e.Mutaxassisligi != "" {
				fmt.Fprintf(w, " (%s)", e.Mutaxassisligi)
			}
			fmt.Fprintln(w)
		}
	}

	if len(d.Relatives) > 0 {
		fmt.Fprintln(w, "\nYaqin qarindoshlari")
		for _, r := range d.Relatives {
			fmt.Fprintf(w, "  %-6s %s, %s", r.Qarindoshligi, r.Fio, r.Tugilgan)
			if r.VafotEtgan {
				fmt.Fprintf(w, ", vafot etgan %s", r.VafotEtganYili)
			} else if r.IshJoyi != "" {
				fmt.Fprintf(w, ", %s", r.IshJoyi)
			}
			fmt.Fprintln(w)
		}
	}
}

func (a *App) CreateDocument(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: doc-new <file.json> [photo]")
	}
	var in models.DocumentInput
	if err := readJSON(args[0], &in); err != nil {
		return err
	}
	if len(args) > 1 {
		photo, err := readPhoto(args[1])
		if err != nil {
			return err
		}
		in.Photo = photo
	}
	if err := in.Validate(); err != nil {
		return err
	}

	d, err := a.docs.Create(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Document #%d created.\n", d.ID)
	return nil
}

func (a *App) EditDocument(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: doc-edit <id> <file.json> [photo]")
	}
	id, err := parseID(args, "doc-edit <id> <file.json> [photo]")
	if err != nil {
		return err
	}
	var in models.UpdateDocumentInput
	if err := readJSON(args[1], &in); err != nil {
		return err
	}
	if len(args) > 2 {
		photo, err := readPhoto(args[2])
		if err != nil {
			return err
		}
		in.Photo = photo
	}
	if err := in.Validate(); err != nil {
		return err
	}

	d, err := a.docs.Update(ctx, id, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Document #%d updated.\n", d.ID)
	return nil
}

func (a *App) DeleteDocument(ctx context.Context, args []string) error {
	id, err := parseID(args, "doc-delete <id>")
	if err != nil {
		return err
	}
	ok, err := a.confirm(ctx, fmt.Sprintf("Delete document #%d?", id))
	if err != nil || !ok {
		return err
	}
	if err := a.docs.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Document #%d deleted.\n", id)
	return nil
}

// DownloadDocument waits for the PDF and hands it to the host.
func (a *App) DownloadDocument(ctx context.Context, args []string) error {
	id, err := parseID(args, "doc-download <id>")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Preparing PDF...")
	pdf, err := a.docs.Download(ctx, id)
	if err != nil {
		if errors.Is(err, waitx.ErrAttemptsExhausted) {
			return fmt.Errorf("the PDF for document #%d is not ready yet, try again later", id)
		}
		return err
	}
	loc, err := a.host.Download(ctx, pdf.Filename, pdf.Data)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved %s to %s.\n", pdf.Filename, loc)
	return nil
}

func (a *App) SendDocument(ctx context.Context, args []string) error {
	id, err := parseID(args, "doc-send <id>")
	if err != nil {
		return err
	}
	msg, err := a.docs.SendViaBot(ctx, id)
	if err != nil {
		return err
	}
	if msg == "" {
		msg = "Document sent."
	}
	return a.host.Notify(ctx, msg)
}

// DocumentTemplate writes an empty create form for the given type to a file,
// or to the output when no file is named.
func (a *App) DocumentTemplate(_ context.Context, args []string) error {
	t := models.DocumentObyektivka
	if len(args) > 0 {
		t = models.DocumentType(args[0])
	}
	if !t.Valid() {
		return fmt.Errorf("unknown document type %q, want one of %v", t, models.DocumentTypes)
	}
	return a.writeJSON(models.NewDocumentInput(t), args[min(1, len(args)):])
}

// ExportDocument writes a document as an update form that doc-edit accepts.
func (a *App) ExportDocument(ctx context.Context, args []string) error {
	id, err := parseID(args, "doc-export <id> <file.json>")
	if err != nil {
		return err
	}
	d, err := a.docs.Get(ctx, id)
	if err != nil {
		return err
	}
	return a.writeJSON(models.InputFromDocument(d), args[1:])
}

func (a *App) writeJSON(v any, args []string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if len(args) == 0 {
		_, err := a.out.Write(data)
		return err
	}
	path, err := filex.WriteFile(filepath.Dir(args[0]), filepath.Base(args[0]), data)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Written to %s.\n", path)
	return nil
}

func readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

func readPhoto(path string) (*models.Photo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &models.Photo{
		Filename:    filepath.Base(path),
		ContentType: imagex.ContentType(data),
		Data:        data,
	}, nil
}
