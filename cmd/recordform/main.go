package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tidwall/pretty"

	"github.com/kjk/recordform/backup"
	"github.com/kjk/recordform/form"
	"github.com/kjk/recordform/httpform"
	"github.com/kjk/recordform/log"
	"github.com/kjk/recordform/record"
	"github.com/kjk/recordform/recordstore"
)

const usage = `usage: recordform <command> [flags]

commands:
  form      interactive form in the terminal (default)
  submit    append a record
  find      find a record by id
  list      print all records
  serve     serve the form over http
  backup    write a compressed snapshot of the records file
  restore   restore the records file from a snapshot

run 'recordform <command> -h' for flags of a command
`

func envOr(name string, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

type commonFlags struct {
	dataDir  string
	fileName string
	logDir   string
	sync     bool
	verbose  bool
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	c := &commonFlags{}
	fs.StringVar(&c.dataDir, "dir", envOr("RECORDFORM_DIR", "."), "directory with the records file")
	fs.StringVar(&c.fileName, "file", recordstore.DefaultFileName, "name of the records file")
	fs.StringVar(&c.logDir, "log-dir", os.Getenv("RECORDFORM_LOG_DIR"), "if set, write logs to this directory")
	fs.BoolVar(&c.sync, "sync", false, "fsync the records file after every write")
	fs.BoolVar(&c.verbose, "v", false, "verbose logging")
	return c
}

func (c *commonFlags) openStore() (*recordstore.Store, error) {
	log.Verbose = c.verbose
	log.Init(&log.Config{Dir: c.logDir})
	s := &recordstore.Store{
		DataDir:   c.dataDir,
		FileName:  c.fileName,
		SyncWrite: c.sync,
	}
	if err := recordstore.OpenStore(s); err != nil {
		return nil, err
	}
	log.Verbosef("records file: %s\n", s.Path())
	return s, nil
}

func addRecordFlags(fs *flag.FlagSet, v *form.Values) {
	fs.StringVar(&v.FullName, "name", "", "full name")
	fs.StringVar(&v.ID, "id", "", "id")
	fs.StringVar(&v.Gender, "gender", "", "gender: "+strings.Join(record.Genders, " or "))
	fs.StringVar(&v.Province, "province", "", "home province")
	fs.StringVar(&v.DOB, "dob", "", "date of birth, YYYY-MM-DD")
}

func printDialog(w io.Writer, d form.Dialog) {
	if !d.IsEmpty() {
		fmt.Fprintf(w, "%s\n", d)
	}
}

func cmdForm(args []string) error {
	fs := flag.NewFlagSet("form", flag.ExitOnError)
	common := addCommonFlags(fs)
	_ = fs.Parse(args)
	store, err := common.openStore()
	if err != nil {
		return err
	}
	return form.RunTerminal(form.New(store), os.Stdin, os.Stdout)
}

func cmdSubmit(args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	common := addCommonFlags(fs)
	server := fs.String("server", os.Getenv("RECORDFORM_SERVER"), "submit to a form server at this url instead of a local file")
	var v form.Values
	addRecordFlags(fs, &v)
	_ = fs.Parse(args)
	v.Gender = record.NormalizeGender(v.Gender)

	var d form.Dialog
	var err error
	if *server != "" {
		log.Verbose = common.verbose
		d, err = httpform.NewClient(*server).Submit(context.Background(), v.Record())
	} else {
		store, errOpen := common.openStore()
		if errOpen != nil {
			return errOpen
		}
		d, err = form.New(store).Submit(v)
	}
	printDialog(os.Stdout, d)
	return err
}

func printRecord(w io.Writer, rec record.Record, asJSON bool) error {
	if !asJSON {
		for i, f := range rec.Fields() {
			fmt.Fprintf(w, "%-14s %s\n", record.FieldNames[i]+":", f)
		}
		return nil
	}
	d, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = w.Write(pretty.Pretty(d))
	return err
}

func cmdFind(args []string) error {
	fs := flag.NewFlagSet("find", flag.ExitOnError)
	common := addCommonFlags(fs)
	server := fs.String("server", os.Getenv("RECORDFORM_SERVER"), "search a form server at this url instead of a local file")
	id := fs.String("id", "", "id to find")
	asJSON := fs.Bool("json", false, "print the record as json")
	_ = fs.Parse(args)

	if *server != "" {
		log.Verbose = common.verbose
		rec, d, err := httpform.NewClient(*server).Find(context.Background(), *id)
		if err != nil {
			printDialog(os.Stdout, d)
			return err
		}
		return printRecord(os.Stdout, rec, *asJSON)
	}

	store, err := common.openStore()
	if err != nil {
		return err
	}
	v, d, err := form.New(store).Find(form.Values{ID: *id})
	if err != nil {
		printDialog(os.Stdout, d)
		return err
	}
	return printRecord(os.Stdout, v.Record(), *asJSON)
}

func cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	common := addCommonFlags(fs)
	_ = fs.Parse(args)
	store, err := common.openStore()
	if err != nil {
		return err
	}
	records, errFn := store.Records()
	n := 0
	for rec := range records {
		n++
		fmt.Printf("%d: %s\n", n, rec)
	}
	if err = errFn(); err != nil {
		return err
	}
	log.Verbosef("%d records\n", n)
	return nil
}

func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	common := addCommonFlags(fs)
	addr := fs.String("addr", envOr("RECORDFORM_ADDR", "localhost:8080"), "address to listen on")
	_ = fs.Parse(args)
	store, err := common.openStore()
	if err != nil {
		return err
	}
	return httpform.New(form.New(store)).ListenAndServe(context.Background(), *addr)
}

func cmdBackup(args []string) error {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	common := addCommonFlags(fs)
	dir := fs.String("backup-dir", "backups", "directory for snapshots")
	codec := fs.String("codec", string(backup.CodecZstd), "compression: zst or br")
	upload := fs.Bool("upload", false, "upload the snapshot, needs RECORDFORM_S3_* env variables")
	_ = fs.Parse(args)
	store, err := common.openStore()
	if err != nil {
		return err
	}
	path, err := backup.Snapshot(backup.Options{
		SrcPath: store.Path(),
		Dir:     *dir,
		Codec:   backup.Codec(*codec),
	})
	if err != nil {
		return err
	}
	log.Logf("wrote snapshot %s\n", path)
	log.Event("backup.snapshot", "path", path)
	if !*upload {
		return nil
	}
	config := backup.UploadConfigFromEnv()
	if config == nil {
		return errors.New("-upload needs RECORDFORM_S3_ACCESS, RECORDFORM_S3_SECRET, RECORDFORM_S3_BUCKET and RECORDFORM_S3_ENDPOINT")
	}
	ctx := context.Background()
	up, err := backup.NewUploader(ctx, config)
	if err != nil {
		return err
	}
	remotePath, err := up.Upload(ctx, path)
	if err != nil {
		return err
	}
	log.Logf("uploaded as %s\n", remotePath)
	log.Event("backup.uploaded", "path", remotePath)
	return nil
}

func cmdRestore(args []string) error {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	common := addCommonFlags(fs)
	dir := fs.String("backup-dir", "backups", "directory for snapshots")
	snapshot := fs.String("snapshot", "", "snapshot to restore, the latest in -backup-dir if empty")
	force := fs.Bool("force", false, "replace a non-empty records file, records added after the snapshot are lost")
	remote := fs.String("remote", "", "download this snapshot from the bucket first, needs RECORDFORM_S3_* env variables")
	_ = fs.Parse(args)
	store, err := common.openStore()
	if err != nil {
		return err
	}

	path := *snapshot
	if *remote != "" {
		config := backup.UploadConfigFromEnv()
		if config == nil {
			return errors.New("-remote needs RECORDFORM_S3_ACCESS, RECORDFORM_S3_SECRET, RECORDFORM_S3_BUCKET and RECORDFORM_S3_ENDPOINT")
		}
		ctx := context.Background()
		up, err := backup.NewUploader(ctx, config)
		if err != nil {
			return err
		}
		path = *dir + string(os.PathSeparator) + lastPathElement(*remote)
		if err = up.Download(ctx, *remote, path); err != nil {
			return err
		}
	}
	if path == "" {
		paths, err := backup.List(*dir)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no snapshots in '%s'", *dir)
		}
		path = paths[len(paths)-1]
	}
	if err = backup.Restore(path, store.Path(), *force); err != nil {
		return err
	}
	log.Logf("restored %s from %s\n", store.Path(), path)
	log.Event("backup.restored", "path", path)
	return nil
}

func lastPathElement(s string) string {
	if idx := strings.LastIndexByte(s, '/'); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

func run(args []string) error {
	cmd := "form"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}
	switch cmd {
	case "form":
		return cmdForm(args)
	case "submit":
		return cmdSubmit(args)
	case "find":
		return cmdFind(args)
	case "list":
		return cmdList(args)
	case "serve":
		return cmdServe(args)
	case "backup":
		return cmdBackup(args)
	case "restore":
		return cmdRestore(args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	}
	fmt.Print(usage)
	return fmt.Errorf("unknown command '%s'", cmd)
}

func main() {
	err := run(os.Args[1:])
	log.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
