package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sonirico/scribews/api"
)

func runUpload(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("upload expects exactly one audio file")
	}

	path := fs.Arg(0)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	res, err := a.api.UploadAudio(ctx, filepath.Base(path), f)
	if err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}

	return printJSON(a, res)
}

func runTemplates(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("templates", flag.ContinueOnError)
	uploadPath := fs.String("upload", "", "upload a .docx or .xlsx file as a new template")
	name := fs.String("name", "", "name of the uploaded template")
	description := fs.String("description", "", "description of the uploaded template")
	remove := fs.String("delete", "", "delete the template with this id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch {
	case *uploadPath != "":
		f, err := os.Open(*uploadPath)
		if err != nil {
			return fmt.Errorf("open template: %w", err)
		}
		defer f.Close()

		tpl, err := a.api.UploadTemplateFile(ctx, filepath.Base(*uploadPath), f, *name, *description)
		if err != nil {
			return fmt.Errorf("upload template: %w", err)
		}
		return printJSON(a, tpl)

	case *remove != "":
		if err := a.api.DeleteTemplate(ctx, *remove); err != nil {
			return fmt.Errorf("delete template %s: %w", *remove, err)
		}
		a.logger.Info().Str("template_id", *remove).Msg("template deleted")
		return nil

	default:
		list, err := a.api.ListTemplates(ctx)
		if err != nil {
			return fmt.Errorf("list templates: %w", err)
		}
		return printJSON(a, list)
	}
}

// runProcess fills a template with a transcription, waits for the run and downloads the result.
func runProcess(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	templateID := fs.String("template", "", "template id")
	text := fs.String("text", "", "transcription to fill the template with")
	outDir := fs.String("out", "", "directory for the processed document; empty skips the download")
	poll := fs.Duration("poll", 2*time.Second, "status polling interval")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *templateID == "" || *text == "" {
		return errors.New("process needs -template and -text")
	}

	started, err := a.api.ProcessTemplate(ctx, api.ProcessRequest{TemplateID: *templateID, Transcription: *text})
	if err != nil {
		return fmt.Errorf("start processing: %w", err)
	}

	status := started
	if !status.Done() {
		if status, err = a.api.WaitProcessResult(ctx, started.ProcessID, *poll); err != nil {
			return fmt.Errorf("wait for %s: %w", started.ProcessID, err)
		}
	}
	if status.Error != "" {
		return fmt.Errorf("process %s: %s", status.ProcessID, status.Error)
	}

	if *outDir == "" {
		return printJSON(a, status)
	}

	return download(ctx, a, status.ProcessID, *outDir)
}

func download(ctx context.Context, a *app, processID, dir string) error {
	tmp, err := os.CreateTemp(dir, "scribews-*")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	name, err := a.api.DownloadProcessedFile(ctx, processID, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("download %s: %w", processID, err)
	}

	target := filepath.Join(dir, filepath.Base(name))
	if err = os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("save %s: %w", target, err)
	}

	fmt.Fprintln(a.out, target)
	return nil
}

func printJSON(a *app, v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
