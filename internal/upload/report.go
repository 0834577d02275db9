package upload

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/lifetime-memories/albumkeeper/internal/github"
)

// State is where one file is in its upload.
type State string

const (
	Pending    State = "pending"
	Processing State = "processing"
	Uploading  State = "uploading"
	Uploaded   State = "uploaded"
	Failed     State = "failed"
)

// Terminal reports whether s is final.
func (s State) Terminal() bool {
	return s == Uploaded || s == Failed
}

// Reason classifies a failed file.
type Reason string

const (
	ReasonValidation Reason = "validation"
	ReasonImage      Reason = "image"
	ReasonDuplicate  Reason = "duplicate"
	ReasonUpload     Reason = "upload"
	ReasonCanceled   Reason = "canceled"
)

// Result is the outcome for one file.
type Result struct {
	Filename      string
	LocalPath     string
	RemotePath    string
	ThumbnailPath string
	State         State
	Reason        Reason
	// Kind is set for upload failures.
	Kind    github.Kind
	Err     error
	Size    int64
	Width   int
	Height  int
	TakenAt time.Time
	SHA     string
}

// OK reports whether the file and its thumbnail were both uploaded.
func (r Result) OK() bool {
	return r.State == Uploaded
}

// Report collects every file's outcome for one batch.
type Report struct {
	BatchID  string
	Repo     string
	Results  []Result
	Started  time.Time
	Finished time.Time
}

func (r *Report) sort() {
	sort.SliceStable(r.Results, func(i, j int) bool {
		if r.Results[i].Filename != r.Results[j].Filename {
			return r.Results[i].Filename < r.Results[j].Filename
		}
		return r.Results[i].LocalPath < r.Results[j].LocalPath
	})
}

// ByFilename indexes results by file name. When two files share a name the
// one that was not rejected as a duplicate wins.
func (r Report) ByFilename() map[string]Result {
	out := make(map[string]Result, len(r.Results))
	for _, res := range r.Results {
		if _, seen := out[res.Filename]; seen && res.Reason == ReasonDuplicate {
			continue
		}
		out[res.Filename] = res
	}
	return out
}

// Succeeded returns the uploaded files.
func (r Report) Succeeded() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Failed returns the files that did not make it.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Err joins every failure, or returns nil when all files were uploaded.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %s: %w", res.Filename, res.Reason, res.Err))
	}
	return errors.Join(errs...)
}
