package flow

import "strings"

// User-facing texts. The bot talks to its audience in Arabic.
const (
	MsgGreetingReply = "وعليكم السلام ورحمة الله وبركاته 🌹"
	MsgIntro         = "أهلاً بك في بوت تصميم الصور!\n" +
		"أرسل رقم التصميم الذي تريده، ثم أرسل صورتك وسنعيدها إليك بالتصميم المطلوب."
	MsgAskForCode    = "أرسل رقم التصميم المطلوب 🎨"
	MsgAskForImage   = "تم اختيار التصميم ✅ الآن أرسل الصورة"
	MsgInvalidStyle  = "رقم التصميم غير صحيح، تأكد من الرقم وحاول مرة أخرى"
	MsgNeedCodeFirst = "أرسل رقم التصميم أولاً قبل إرسال الصورة"
	MsgExpired       = "انتهت صلاحية الجلسة، أرسل رقم التصميم مرة أخرى"
	MsgProcessing    = "جاري معالجة الصورة، قد يستغرق الأمر دقيقة ⏳"
	MsgDone          = "تفضل صورتك الجديدة 🎉"
	MsgFailed        = "عذراً، حدث خطأ أثناء معالجة الصورة: "
)

// greetings are the accepted salutation forms, shortest to fullest.
// Matching is exact after whitespace trimming, not fuzzy.
var greetings = []string{
	"سلام عليكم",
	"السلام عليكم",
	"السلام عليكم ورحمة الله",
	"السلام عليكم ورحمة الله وبركاته",
}

func isGreeting(text string) bool {
	text = strings.TrimSpace(text)
	for _, g := range greetings {
		if text == g {
			return true
		}
	}
	return false
}

// normalizeCode trims the text and maps Eastern Arabic digits to ASCII.
// Returns the code and whether the text was purely numeric.
func normalizeCode(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	var b strings.Builder
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		default:
			return "", false
		}
	}
	return b.String(), true
}

const maxErrorLen = 200

// truncateError keeps provider diagnostics short enough for a chat reply.
func truncateError(err error) string {
	text := err.Error()
	runes := []rune(text)
	if len(runes) > maxErrorLen {
		return string(runes[:maxErrorLen]) + "..."
	}
	return text
}
