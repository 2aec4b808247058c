package constant

// Commands. The escape commands must stay dispatchable from any flow state.
const (
	CmdStart         = "start"
	CmdStop          = "stop"
	CmdHelp          = "help"
	CmdStats         = "stats"
	CmdChangeClass   = "changeclass"
	CmdSearch        = "search"
	CmdUpgrade       = "upgrade"
	CmdPaymentStatus = "paymentstatus"

	// Operator-only.
	CmdUpgradeUser = "upgradeuser"
	CmdEndPlan     = "endplan"
	CmdExtendPlan  = "extendplan"
	CmdBotStats    = "botstats"
	CmdBroadcast   = "broadcast"
	CmdDeleteDoc   = "deletedoc"
)

// Main menu button labels.
const (
	BtnChatAI  = "💬 Chat with AI"
	BtnSearch  = "🔎 Search documents"
	BtnUpgrade = "💎 Access premium content"
	BtnHelp    = "🆘 Help"
)

// Structured action tokens. Actions arrive as "prefix:rest".
const (
	ActionClassPrefix   = "class:"
	ActionDocPrefix     = "doc:"
	ActionDocPagePrefix = "docs:page:"
	ActionLockPrefix    = "doc_lock:"
	ActionDelPrefix     = "del:"
	ActionDelConfirm    = "del_confirm:"
	ActionDelCancel     = "del_cancel"
)

// ClassNone marks a user who has not picked a class yet.
const ClassNone = "none"

// ClassTags the selection flow offers.
var ClassTags = []string{"9", "10", "11", "12"}

// DefaultSystemPrompt is used when no prompt profile exists for a class.
const DefaultSystemPrompt = "You are a helpful assistant. Keep all your responses concise and to the point."
