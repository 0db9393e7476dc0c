package thread

// Mode is the presentation state of one reply.
type Mode int

const (
	Viewing Mode = iota
	Editing
	PendingDelete
)

func (m Mode) String() string {
	switch m {
	case Editing:
		return "editing"
	case PendingDelete:
		return "pending-delete"
	default:
		return "viewing"
	}
}

type RequestStatus int

const (
	Idle RequestStatus = iota
	Pending
	Succeeded
	Failed
)

// RequestState tracks one mutating action. Reason is set only when
// Status is Failed.
type RequestState struct {
	Status RequestStatus
	Reason string
}

func (r RequestState) Pending() bool { return r.Status == Pending }

// Menu is the per-reply action menu: closed, or open on one reply.
type Menu struct {
	open   bool
	target uint
}

func ClosedMenu() Menu             { return Menu{} }
func OpenMenu(target uint) Menu    { return Menu{open: true, target: target} }
func (m Menu) IsOpen() bool        { return m.open }
func (m Menu) Target() uint        { return m.target }
func (m Menu) OpenOn(id uint) bool { return m.open && m.target == id }

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityError   Severity = "error"
)

// Notification is the transient, dismissible notice shown after an action.
type Notification struct {
	Severity Severity
	Message  string
}

type actionKind int

const (
	actionLikeDiscussion actionKind = iota
	actionLikeReply
	actionSubmitReply
	actionEditReply
	actionDeleteReply
)

// actionKey identifies the target of an in-flight request.
type actionKey struct {
	kind actionKind
	id   uint
}
