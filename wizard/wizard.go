package wizard

import (
	"errors"

	"github.com/ahmed-abdelmageed/vise-services-sub001/documents"
	"github.com/ahmed-abdelmageed/vise-services-sub001/models"
)

var ErrLastStep = errors.New("already on the last step")

// Wizard is the state of one applicant moving through the steps. Nothing is
// persisted until the form is submitted.
type Wizard struct {
	svc   models.ServiceDefinition
	rules Rules
	step  Step

	Form Form
	Docs *documents.Collector
}

func New(svc models.ServiceDefinition, rules Rules) *Wizard {
	w := &Wizard{
		svc:   svc,
		rules: rules,
		step:  PersonalInfo,
		Form:  Form{ServiceId: svc.Id, Adults: 1},
		Docs:  documents.NewCollector(1),
	}
	w.Form.resizeTravellers(1)
	return w
}

// Restore rebuilds a wizard at step from a saved form.
func Restore(svc models.ServiceDefinition, rules Rules, step Step, form Form, docs *documents.Collector) *Wizard {
	if !step.Valid() {
		step = PersonalInfo
	}
	form.clampTravellers()
	if docs == nil {
		docs = documents.NewCollector(form.TravellerCount())
	}
	w := &Wizard{svc: svc, rules: rules, step: step, Form: form, Docs: docs}
	w.Form.resizeTravellers(form.TravellerCount())
	w.Docs.Resize(form.TravellerCount())
	return w
}

func (w *Wizard) Step() Step { return w.step }

func (w *Wizard) Service() models.ServiceDefinition { return w.svc }

// Next advances when the current step's guard passes. On failure the step
// does not change and the field errors are returned.
func (w *Wizard) Next() error {
	if w.step == AccountAndSubmit {
		return ErrLastStep
	}
	w.Form.Normalize()
	if err := w.rules.Check(w.step, w.svc, w.Form, w.Docs); err != nil {
		return err
	}
	w.step++
	return nil
}

// Previous goes back one step; it does nothing on the first step.
func (w *Wizard) Previous() {
	if w.step > PersonalInfo {
		w.step--
	}
}

// Ready runs every guard, as done right before submission.
func (w *Wizard) Ready() error {
	w.Form.Normalize()
	return w.rules.CheckAll(w.svc, w.Form, w.Docs)
}

func (w *Wizard) TravellerCount() int { return w.Form.TravellerCount() }

func (w *Wizard) SetTravellerCount(adults, children int) {
	w.Form.Adults, w.Form.Children = adults, children
	w.Form.clampTravellers()
	w.resize()
}

func (w *Wizard) IncrementAdults()   { w.SetTravellerCount(w.Form.Adults+1, w.Form.Children) }
func (w *Wizard) IncrementChildren() { w.SetTravellerCount(w.Form.Adults, w.Form.Children+1) }

// DecrementAdults is a no-op at one adult.
func (w *Wizard) DecrementAdults() {
	if w.Form.Adults > 1 {
		w.SetTravellerCount(w.Form.Adults-1, w.Form.Children)
	}
}

func (w *Wizard) DecrementChildren() {
	if w.Form.Children > 0 {
		w.SetTravellerCount(w.Form.Adults, w.Form.Children-1)
	}
}

// resize drops the travellers and document slots past the new count.
func (w *Wizard) resize() {
	n := w.Form.TravellerCount()
	w.Form.resizeTravellers(n)
	w.Docs.Resize(n)
}
