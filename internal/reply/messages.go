// Package reply collects every user-facing message template so the flow
// handlers stay free of copy. Templates use Telegram HTML formatting.
package reply

const (
	// Generic.
	GenericError    = "An error occurred while processing your request. Please try again later or contact support."
	TryAgainLater   = "Sorry, something went wrong. Please try again."
	SessionLost     = "An error occurred. Please type /start."
	UnknownMessage  = "I didn't understand that message. Use the buttons below or type /help for assistance."
	BackToMenu      = "You are now back in the main menu.\n\nUse the buttons below or type /help for more information!"
	StopNothing     = "You weren't in any active operation. Here is the main menu."
	MainMenu        = "Here's the main menu:"
	StillWorking    = "I'm still working on your previous request. Please wait for it to finish."
	OperatorOnly    = "This command is only available to the operator."
	RegisterFirst   = "Please type /start to register first."

	// Idle small talk.
	Greeting = "👋 Hello!\n\n" +
		"I'm your educational assistant bot. Here's what I can do:\n\n" +
		"• 🔎 Search and download PDFs\n" +
		"• 💬 Chat with AI\n" +
		"• 💎 Premium features\n\n" +
		"Use the buttons below or type /help for more information!"
	ThanksReply = "You're welcome! 😊\n\nHappy to help. Let me know if you need anything else!\n\nUse /help if you have questions."
	AboutBot    = "<b>ℹ️ About This Bot</b>\n\n" +
		"<b>Features:</b>\n" +
		"• 🤖 AI-powered chat assistant\n" +
		"• 📚 PDF search and download system\n" +
		"• 💎 Premium subscription system\n\n" +
		"Use /help to see all available commands!"

	// Start and class selection.
	WelcomeNew      = "Welcome! Please select your class to continue:"
	WelcomeBack     = "Welcome back!\nYou are all set! Here is the main menu:"
	PickClass       = "Please select your new class:"
	ClassConfirmed  = "You are in class: <b>%s</b>. (Use /changeclass to modify)\n\nHere's the main menu:"
	ClassFirst      = "Please select your class first using /changeclass before searching for PDFs."

	// Help.
	Help = "<b>Here are the commands you can use:</b>\n\n" +
		"<b>/start</b> - Start or restart the bot\n" +
		"<b>/changeclass</b> - Change your selected class\n" +
		"<b>/search</b> - Search for PDFs in your class\n" +
		"<b>/stats</b> - Check your account status and limits\n" +
		"<b>/upgrade</b> - Get premium access\n" +
		"<b>/stop</b> - Cancel any current operation\n" +
		"<b>/help</b> - Show this help message"

	// Account stats.
	StatsFree = "<b>Your Account Stats:</b>\n\n" +
		"<b>Class:</b> %s\n" +
		"<b>AI Queries:</b> %d remaining\n" +
		"<b>PDF Downloads:</b> %d remaining\n" +
		"<b>Plan:</b> Use /upgrade to get premium!"
	StatsPremium = "<b>Your Account Stats:</b>\n\n" +
		"<b>Class:</b> %s\n" +
		"<b>AI Queries:</b> %d remaining\n" +
		"<b>PDF Downloads:</b> %d remaining\n" +
		"<b>Plan Status:</b> Active 💎\n" +
		"<b>Plan Expires:</b> %s"

	// Document search.
	SearchPrompt      = "Send me your search query to find PDFs in your class.\n\nType /stop to cancel."
	SearchTooShort    = "Please enter at least 2 characters to search.\nType another query or /stop to cancel."
	SearchTooLong     = "Please keep your search query under 100 characters.\nType another query or /stop to cancel."
	SearchNoResults   = "I couldn't find any PDFs matching '<b>%s</b>' in <b>%s</b>.\n\nType another query or /stop to cancel."
	SearchResults     = "Found <b>%d</b> match(es) for '<b>%s</b>'.\n<b>Results:</b> Page %d of %d\n\n<i>Click on a PDF to download:</i>"
	SearchError       = "An error occurred while searching. Please try again later."
	DownloadLink      = "<b>%s</b>\n\n<a href='%s'>Click here to download your PDF</a>\n\n<b>Downloads Remaining:</b> %d"
	DownloadGone      = "PDF not found. It may have been removed from the database."
	DownloadExhausted = "You have used all your free PDF downloads for this month.\n\nUse /upgrade to get 50 downloads per day."
	DocumentLocked    = "This PDF is locked. Upgrade to premium to access all locked PDFs. (/upgrade)"
	InvalidPage       = "Invalid page number"

	// AI chat.
	AIChatEntered   = "You are now in <b>AI Chat Mode</b>. I will remember our last few messages.\n\nAsk me anything!\nType /stop to exit."
	AIExhausted     = "You are out of AI queries. Use /upgrade."
	AIUnavailable   = "The AI service is temporarily unavailable. Please try again in a few minutes."
	AIRejected      = "I can't answer that one. Try rephrasing your question."
	AIRateLimited   = "The AI service is overloaded right now. Please try again later."
	AICachedSuffix  = "\n\n<i>(This was a cached response)</i>"
	AIThinking      = "Please wait..."

	// Payment.
	UpgradePitch = "You are currently on the free plan.\n\n" +
		"Upgrade to premium for:\n" +
		"- 100 AI queries per day\n" +
		"- 50 PDF downloads per day\n" +
		"- Access to all locked PDFs\n\n" +
		"After paying, send me a screenshot of your payment confirmation.\n\n" +
		"Type /stop to cancel the payment process."
	PaymentNeedPhoto = "Please send a <b>photo/screenshot</b> of your payment confirmation.\n\nType /stop to cancel."
	PaymentReceived  = "Your payment screenshot has been submitted!\n\n" +
		"<b>⏰ Verification Time:</b> Usually 1-24 hours\n" +
		"<b>🔔 Notification:</b> You'll get a message when approved\n\n" +
		"Use /help if you have questions."
	PaymentForward  = "<b>🔔 NEW PAYMENT VERIFICATION REQUEST</b>\n\n<b>👤 User Information:</b>\nID: %d\n\n(See forwarded message below)"
	AlreadyPremium    = "You are already a 💎 Premium User!\n<b>Expires On:</b> %s"
	PaymentStatusFree = "You are currently on the free plan.\n\nUse /upgrade to get premium access!"
	PremiumGranted  = "You are now a 💎 Premium User for the next 30 days!\n\n<i>Thank you for upgrading! We appreciate your support. 🙏</i>"
	PremiumEnded    = "Your 💎 Premium Plan has expired. You have been returned to the free tier.\n\nUse /upgrade to renew!"

	// Operator commands.
	UsageUpgradeUser = "Usage: <code>/upgradeuser &lt;user_id&gt;</code>"
	UsageEndPlan     = "Usage: <code>/endplan &lt;user_id&gt;</code>"
	UsageExtendPlan  = "Usage: <code>/extendplan &lt;user_id&gt; &lt;days&gt;</code>\nBoth must be numbers."
	UsageDeleteDoc   = "Usage: <code>/deletedoc &lt;search term&gt;</code>\n\nI will search for PDFs with that term in their title."
	UserNotFound     = "Error: User not found"
	UpgradedUser     = "Upgraded user %d to premium for 30 days."
	EndedPlan        = "Ended premium plan for user %d."
	ExtendedPlan     = "Extended premium for user %d by %d days."
	BotStats         = "<b>📊 Bot Statistics</b>\n\n<b>Total Users:</b> %d\n<b>Total Premium:</b> %d\n<b>Active Today:</b> %d"
	BroadcastPrompt  = "OK, send me the message you want to broadcast. It can be text, photo, or a document.\n\nType /stop to cancel."
	BroadcastDone    = "Broadcast sent to %d users (%d failed)."
	DeletePick       = "Found <b>%d</b> match(es).\nWhich one do you want to delete?"
	DeleteNone       = "I couldn't find any PDFs with the title '<b>%s</b>'."
	DeleteConfirm    = "<b>%s</b>\n\nAre you sure you want to permanently delete this file?\nThis action cannot be undone."
	DeleteDone       = "PDF deleted."
	DeleteCancelled  = "Deletion cancelled."
	DeleteGone       = "PDF not found or already deleted."
)
