package presenter

// CaptureModel provides enabled state and last error access.
type CaptureModel interface {
	Enabled() bool
	SetEnabled(bool)
	SetError(error)
}

// LifecycleContract narrows what the presenter needs from the capture layer.
type LifecycleContract interface {
	Start() error
	Stop()
}

// CaptureView updates UI elements affected by stream toggling.
type CaptureView interface {
	PreviewReset()
	ConfigEditable(bool)
	ShowError(msg string)
}

// CapturePresenter owns presentation logic for toggling the stream.
type CapturePresenter struct {
	model   CaptureModel
	service LifecycleContract
	view    CaptureView
}

func NewCapturePresenter(model CaptureModel, service LifecycleContract, view CaptureView) *CapturePresenter {
	return &CapturePresenter{model: model, service: service, view: view}
}

func (c *CapturePresenter) ready() bool {
	return c != nil && c.model != nil && c.service != nil && c.view != nil
}

// Enable starts the capture service and locks the config panel. A failed
// start leaves the stream disabled and surfaces the error. Idempotent.
func (c *CapturePresenter) Enable() error {
	if !c.ready() || c.model.Enabled() {
		return nil
	}
	if err := c.service.Start(); err != nil {
		c.model.SetError(err)
		c.view.ShowError(err.Error())
		return err
	}
	c.model.SetEnabled(true)
	c.view.ShowError("")
	c.view.ConfigEditable(false)
	return nil
}

// Disable stops the capture service and resets the preview. Idempotent.
func (c *CapturePresenter) Disable() {
	if !c.ready() || !c.model.Enabled() {
		return
	}
	c.service.Stop()
	c.model.SetEnabled(false)
	c.view.PreviewReset()
	c.view.ConfigEditable(true)
}

// Toggle flips enabled state delegating to Enable/Disable.
func (c *CapturePresenter) Toggle() error {
	if !c.ready() {
		return nil
	}
	if c.model.Enabled() {
		c.Disable()
		return nil
	}
	return c.Enable()
}

// Fatal handles a failure reported by the capture service after start. It
// runs on the UI thread.
func (c *CapturePresenter) Fatal(err error) {
	if !c.ready() || err == nil {
		return
	}
	c.model.SetError(err)
	c.view.ShowError(err.Error())
	c.Disable()
}
