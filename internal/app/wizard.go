package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"portalsync/internal/config"
	"portalsync/internal/portal"
)

// BackAnswer typed at a wizard prompt returns to the previous step.
const BackAnswer = "<"

// WizardStep names a step of the init wizard.
type WizardStep string

const (
	StepBaseURL       WizardStep = "base_url"
	StepPortalID      WizardStep = "portal_id"
	StepWorkspaceRoot WizardStep = "workspace_root"
	StepGrouping      WizardStep = "grouping"
	StepDone          WizardStep = "done"
)

var wizardSteps = []WizardStep{StepBaseURL, StepPortalID, StepWorkspaceRoot, StepGrouping, StepDone}

// InitAnswers are collected by the init wizard. Step is where the wizard
// resumes; the zero value starts from the beginning.
type InitAnswers struct {
	Step          WizardStep `toml:"step"`
	BaseURL       string     `toml:"base_url"`
	PortalID      string     `toml:"portal_id"`
	WorkspaceRoot string     `toml:"workspace_root"`
	GroupFiles    bool       `toml:"group_files"`
}

// Apply copies the answers into cfg.
func (a InitAnswers) Apply(cfg *config.Config) {
	cfg.Remote.BaseURL = a.BaseURL
	cfg.Portal.ID = a.PortalID
	cfg.Workspace.Root = a.WorkspaceRoot
	cfg.Workspace.GroupFiles = a.GroupFiles
}

// Wizard walks the user through the settings config init needs. Every
// step can go back to the previous one; dismissing any prompt cancels and
// leaves the answers so far for a later resume.
type Wizard struct {
	chooser portal.Chooser
	// DefaultRoot is offered for the workspace root.
	DefaultRoot string
}

func NewWizard(chooser portal.Chooser, defaultRoot string) *Wizard {
	return &Wizard{chooser: chooser, DefaultRoot: defaultRoot}
}

// errWizardCancelled is returned by a step when its prompt was dismissed.
var errWizardCancelled = errors.New("wizard cancelled")

// stepResult is what a step asks the state machine to do next.
type stepResult int

const (
	advance stepResult = iota
	goBack
)

// Run continues from answers.Step. ok is false when the user cancelled;
// the returned answers then hold the progress to resume from.
func (w *Wizard) Run(ctx context.Context, answers InitAnswers) (InitAnswers, bool, error) {
	idx := stepIndex(answers.Step)

	for wizardSteps[idx] != StepDone {
		if err := ctx.Err(); err != nil {
			return answers, false, err
		}
		answers.Step = wizardSteps[idx]

		res, err := w.runStep(ctx, &answers)
		if errors.Is(err, errWizardCancelled) {
			return answers, false, nil
		}
		if err != nil {
			return answers, false, err
		}

		switch res {
		case goBack:
			if idx > 0 {
				idx--
			}
		default:
			idx++
		}
	}
	answers.Step = StepDone
	return answers, true, nil
}

func stepIndex(s WizardStep) int {
	for i, step := range wizardSteps {
		if step == s {
			return i
		}
	}
	return 0
}

func (w *Wizard) runStep(ctx context.Context, a *InitAnswers) (stepResult, error) {
	switch a.Step {
	case StepBaseURL:
		return w.askBaseURL(ctx, a)
	case StepPortalID:
		return w.askPortalID(ctx, a)
	case StepWorkspaceRoot:
		return w.askWorkspaceRoot(ctx, a)
	case StepGrouping:
		return w.askGrouping(ctx, a)
	default:
		return advance, fmt.Errorf("unknown wizard step %q", a.Step)
	}
}

// prompt asks for text. A typed BackAnswer returns goBack.
func (w *Wizard) prompt(ctx context.Context, title string, validate func(string) error) (string, stepResult, error) {
	v, ok, err := w.chooser.Prompt(ctx, title, false, func(s string) error {
		if strings.TrimSpace(s) == BackAnswer {
			return nil
		}
		return validate(s)
	})
	if err != nil {
		return "", advance, err
	}
	if !ok {
		return "", advance, errWizardCancelled
	}
	v = strings.TrimSpace(v)
	if v == BackAnswer {
		return "", goBack, nil
	}
	return v, advance, nil
}

func (w *Wizard) askBaseURL(ctx context.Context, a *InitAnswers) (stepResult, error) {
	title := "CMS base URL (e.g. https://contoso.example.com/api)"
	if a.BaseURL != "" {
		title += fmt.Sprintf(" [%s]", a.BaseURL)
	}
	v, res, err := w.prompt(ctx, title, ValidateBaseURL)
	if err != nil || res == goBack {
		return res, err
	}
	a.BaseURL = strings.TrimRight(v, "/")
	return advance, nil
}

const (
	portalEnter = "enter"
	portalLater = "later"
	optionBack  = "back"
)

func (w *Wizard) askPortalID(ctx context.Context, a *InitAnswers) (stepResult, error) {
	choice, ok, err := w.chooser.Choose(ctx, "Which portal should this workspace mirror?", []portal.Option{
		{Label: "Enter a portal id", Value: portalEnter},
		{Label: "Pick from the list on first download", Value: portalLater},
		{Label: BackAnswer + " Back", Value: optionBack},
	})
	if err != nil {
		return advance, err
	}
	if !ok {
		return advance, errWizardCancelled
	}

	switch choice.Value {
	case optionBack:
		return goBack, nil
	case portalLater:
		a.PortalID = ""
		return advance, nil
	}

	v, res, err := w.prompt(ctx, "Portal id", func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New("portal id cannot be empty")
		}
		return nil
	})
	if err != nil || res == goBack {
		// back from the id prompt returns to this step's menu
		if res == goBack {
			return w.askPortalID(ctx, a)
		}
		return res, err
	}
	a.PortalID = v
	return advance, nil
}

func (w *Wizard) askWorkspaceRoot(ctx context.Context, a *InitAnswers) (stepResult, error) {
	def := a.WorkspaceRoot
	if def == "" {
		def = w.DefaultRoot
	}
	title := "Workspace folder"
	if def != "" {
		title += fmt.Sprintf(" (\".\" keeps %s)", def)
	}
	v, res, err := w.prompt(ctx, title, func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New("workspace folder cannot be empty")
		}
		return nil
	})
	if err != nil || res == goBack {
		return res, err
	}
	if v == "." && def != "" {
		v = def
	}
	abs, err := filepath.Abs(v)
	if err != nil {
		return advance, fmt.Errorf("resolving workspace folder: %w", err)
	}
	a.WorkspaceRoot = abs
	return advance, nil
}

func (w *Wizard) askGrouping(ctx context.Context, a *InitAnswers) (stepResult, error) {
	choice, ok, err := w.chooser.Choose(ctx, "How should web files be laid out?", []portal.Option{
		{Label: "Mirror the page tree as folders", Value: "grouped"},
		{Label: "Keep all web files in one folder", Value: "flat"},
		{Label: BackAnswer + " Back", Value: optionBack},
	})
	if err != nil {
		return advance, err
	}
	if !ok {
		return advance, errWizardCancelled
	}
	if choice.Value == optionBack {
		return goBack, nil
	}
	a.GroupFiles = choice.Value == "grouped"
	return advance, nil
}

// ValidateBaseURL accepts absolute http and https URLs.
func ValidateBaseURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("URL must start with http:// or https://")
	}
	if u.Host == "" {
		return errors.New("URL must include a host")
	}
	return nil
}

// LoadWizardProgress reads answers saved by SaveWizardProgress. A missing
// file yields zero answers.
func LoadWizardProgress(path string) (InitAnswers, error) {
	var a InitAnswers
	if _, err := toml.DecodeFile(path, &a); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return InitAnswers{}, nil
		}
		return InitAnswers{}, fmt.Errorf("reading wizard progress: %w", err)
	}
	return a, nil
}

// SaveWizardProgress stores answers so an interrupted wizard can resume.
func SaveWizardProgress(path string, a InitAnswers) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("saving wizard progress: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("saving wizard progress: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(a); err != nil {
		return fmt.Errorf("saving wizard progress: %w", err)
	}
	return nil
}

// ClearWizardProgress removes saved answers once init completed.
func ClearWizardProgress(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
