package bot

const (
	textBlocked = "⛔ You are blocked and cannot use this bot."

	textMaintenance = "🔧 The bot is under maintenance.\nPlease come back later."

	textUseButtons = "🤔 Please use the menu buttons below."

	textUseStart = "👋 Press /start to begin."

	textNoAccess = "⛔ You do not have access to this function."

	textAdminPanel = "⚙️ ADMIN PANEL\n\nPick a section:"

	textSupportPrompt = "🆘 Describe your problem in one message.\nSupport will reply to you here."

	textAlreadyMemberPrompt = "🔄 Pick the bot you were ALREADY in:"

	textLinksStep = "🔗 Link submission.\n\nSend your referral links or pick an option:"

	textBadLinkFormat = "❌ Invalid link format. Use: https://t.me/...?start=..."

	textLink1First = "❌ Submit link #1 first."

	textRulesRejected = "❌ You rejected the rules, access to the bot is closed."

	textNumericID = "❌ Send a numeric user ID."

	rulesText = "📖 EXCHANGE RULES\n\n" +
		"1. Follow BOTH partner links and register in each bot.\n" +
		"2. Send your own referral links in reply.\n" +
		"3. Attach screenshots proving you completed the referrals.\n" +
		"4. Do not submit links of bots you already used, mark them instead.\n" +
		"5. One account per person. Fraud leads to a permanent ban.\n\n" +
		"Accepting the rules is required to participate."
)
