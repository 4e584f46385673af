package bot

// Command names.
const (
	CmdStart  = "start"
	CmdHelp   = "help"
	CmdReport = "report"
	CmdStatus = "status"

	// ArgProd sends /report output to the production destination.
	ArgProd = "prod"
)

// Log field names.
const (
	LogFieldUserID   = "user_id"
	LogFieldUsername = "username"
	LogFieldCommand  = "command"
	LogFieldChatID   = "chat_id"
)

// Progress and result messages.
const (
	msgReportStarted = "📊 채널별 리포트 생성 중..."
	msgReportDone    = "✅ 완료"
	msgReportFailed  = "❌ 리포트 실패 [%s]: %s"
	markOK           = "✔"
	markFailed       = "✖"
)

const (
	updateTimeoutSeconds = 60
	dateTimeFormat       = "2006-01-02 15:04 MST"
)
