package workflow

// State is the controller's position in the upload, crop, export flow.
type State string

const (
	StateIdle      State = "idle"
	StateLoading   State = "loading"
	StateConverted State = "converted"
	StateCropping  State = "cropping"
	StateResult    State = "result"
)

func (s State) String() string { return string(s) }

// accepts lists the states each operation is valid in.
var accepts = map[string][]State{
	opSubmitFile: {StateIdle, StateResult},
	opStartCrop:  {StateConverted},
	opApplyCrop:  {StateCropping},
	opResetCrop:  {StateCropping},
	opAdjust:     {StateCropping},
	opDownload:   {StateCropping, StateResult},
	opNewImage:   {StateIdle, StateConverted, StateCropping, StateResult},
}

const (
	opSubmitFile = "submit_file"
	opStartCrop  = "start_crop"
	opApplyCrop  = "apply_crop"
	opResetCrop  = "reset_crop"
	opAdjust     = "adjust"
	opDownload   = "download"
	opNewImage   = "new_image"
)

// Accepts reports whether op may run in s.
func (s State) Accepts(op string) bool {
	for _, st := range accepts[op] {
		if st == s {
			return true
		}
	}
	return false
}
