package services

import (
	"fmt"
	"os"
	"strings"

	"github.com/biztechoff/servicedesk-backend/internal/models"
)

// Messages renders every outbound text the bot sends. Branding values are
// substituted into the copy but have no behavioral effect.
type Messages struct {
	CompanyName  string
	PrivacyURL   string
	PortalURL    string
	SupportPhone string
}

// NewMessagesFromEnv builds the message renderer from environment variables.
func NewMessagesFromEnv() *Messages {
	return &Messages{
		CompanyName:  envOr("COMPANY_NAME", "BizTechoff™"),
		PrivacyURL:   envOr("PRIVACY_URL", "https://biztechoff.co.il/privacy.html"),
		PortalURL:    envOr("CUSTOMER_PORTAL_URL", "https://biztechoff.com/portal"),
		SupportPhone: envOr("SUPPORT_PHONE", "03-1234567"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

const mainMenuOptions = `*1* - _פתיחת קריאת שירות_
*2* - _בירור בנוגע לשירות קיים_
*3* - _תקלה דחופה_
*4* - _הצעת מחיר_
*5* - _שיחה עם נציג_`

// FirstTime greets a customer the bot has never seen, with the privacy notice.
func (m *Messages) FirstTime() string {
	return fmt.Sprintf(`ברוכים הבאים ל-WhatsApp של *%s*.

לידיעתך, השימוש בשירות הינו בכפוף לתנאי השימוש ומדיניות הפרטיות:
%s

כיצד נוכל לעזור?
*בכל שאלה עם אפשרויות בחירה - יש להשיב מספר בלבד.*

%s`, m.CompanyName, m.PrivacyURL, mainMenuOptions)
}

// Welcome greets a known customer with the main menu.
func (m *Messages) Welcome(customerName string) string {
	return fmt.Sprintf(`שלום *%s*! 👋

כיצד נוכל לעזור?

%s`, customerName, mainMenuOptions)
}

// OpenCall greets a customer who already has an open service call.
func (m *Messages) OpenCall(customerName string, call *models.ServiceCall) string {
	updateDate := call.LastUpdateDate.Format("02/01/2006 15:04")

	return fmt.Sprintf(`שלום *%s*! 👋

יש לך קריאת שירות פתוחה:
📋 קריאה *#%d*
📍 סטטוס: *%s*
🔧 סוג: %s
🕐 עדכון אחרון: %s

לפרטים נוספים: %s

כיצד נוכל לעזור?

%s`, customerName, call.CallNumber, call.Status.Caption(), call.ServiceType.Caption(),
		updateDate, m.PortalURL, mainMenuOptions)
}

// ServiceTypeMenu lists the service type choices.
func (m *Messages) ServiceTypeMenu() string {
	return `מה סוג השירות הנדרש?

*1* - _מצלמות לעגורנים_
*2* - _שרשראות הרמה_
*3* - _ציוד בטיחות_
*4* - _תחזוקה שוטפת_
*5* - _אחר_`
}

// CallsList summarizes the customer's open calls.
func (m *Messages) CallsList(calls []*models.ServiceCall) string {
	var b strings.Builder
	b.WriteString("קריאות השירות שלך:\n\n")

	for _, call := range calls {
		fmt.Fprintf(&b, "📋 *#%d* - %s\n", call.CallNumber, call.Status.Caption())
		fmt.Fprintf(&b, "   %s | %s\n\n", call.ServiceType.Caption(),
			call.LastUpdateDate.Format("02/01/2006"))
	}

	b.WriteString("לפרטים נוספים: " + m.PortalURL)
	return b.String()
}

// NoOpenCalls redirects to the new-call flow when there is nothing to show.
func (m *Messages) NoOpenCalls() string {
	return "אין קריאות שירות פתוחות.\n\nלפתיחת קריאה חדשה הקלד *1*"
}

// Urgent handles the urgent-fault menu choice.
func (m *Messages) Urgent() string {
	return fmt.Sprintf(`🚨 *תקלה דחופה*

לטיפול מיידי בתקלה דחופה:
📞 התקשר עכשיו: *%s*

או הקלד *1* לפתיחת קריאת שירות דחופה.`, m.SupportPhone)
}

// Quote handles the price-quote menu choice.
func (m *Messages) Quote() string {
	return fmt.Sprintf(`לקבלת הצעת מחיר, אנא צור קשר עם נציג:
📞 *%s*

או השאר פרטים ונחזור אליך.`, m.SupportPhone)
}

// Handoff confirms that a human representative will follow up.
func (m *Messages) Handoff() string {
	return fmt.Sprintf("נציג יצור איתך קשר בהקדם.\n📞 לשירות מיידי: *%s*", m.SupportPhone)
}

// DidNotUnderstand re-prompts after an unrecognized menu choice.
func (m *Messages) DidNotUnderstand() string {
	return "לא הבנתי את בחירתך.\nאנא הקלד מספר בין 1-5."
}

// AskAddress prompts for the site address.
func (m *Messages) AskAddress() string {
	return "מהי כתובת האתר?"
}

// InvalidAddress re-prompts for an address that was too short.
func (m *Messages) InvalidAddress() string {
	return "אנא הזן כתובת תקינה."
}

// AskDescription prompts for the problem description.
func (m *Messages) AskDescription() string {
	return "תאר בקצרה את הבעיה/הבקשה:"
}

// MoreDetail re-prompts for a description that was too short.
func (m *Messages) MoreDetail() string {
	return "אנא הזן תיאור מפורט יותר."
}

// Confirmation announces the newly created service call.
func (m *Messages) Confirmation(call *models.ServiceCall) string {
	return fmt.Sprintf(`✅ קריאת שירות *#%d* נפתחה בהצלחה!

📋 סוג: %s
📍 כתובת: %s
📝 תיאור: %s

נציג יצור איתך קשר בהקדם.
לפרטים נוספים: %s`, call.CallNumber, call.ServiceType.Caption(), call.Address,
		call.Description, m.PortalURL)
}

// CreateFailed apologizes when the service call could not be saved.
func (m *Messages) CreateFailed() string {
	return fmt.Sprintf("אירעה שגיאה בפתיחת הקריאה.\nאנא נסה שוב או התקשר ל: *%s*", m.SupportPhone)
}
