package service

import "fmt"

// User-facing text: Hebrew first, English in parentheses.
const (
	msgReady          = "מוכן לעריכה (Ready to edit)"
	msgPickNotText    = "שגיאה: יש לבחור קובץ טקסט בלבד (Error: Please select a text file only)"
	msgDropNotText    = "שגיאה: יש לגרור קובץ טקסט בלבד (Error: Please drag a text file only)"
	msgLoadFailed     = "שגיאה בטעינת הקובץ (Error loading file)"
	msgNothingToSave  = "אין תוכן לשמירה (No content to save)"
	msgSaveFailed     = "שגיאה בשמירת הקובץ (Error saving file)"
	msgNewFile        = "קובץ חדש נוצר (New file created)"
	msgRestored       = "תוכן קודם שוחזר (Previous content restored)"
	msgAutoSaved      = "נשמר אוטומטית (Auto-saved)"
	msgConfirmNewFile = "האם אתה בטוח שברצונך ליצור קובץ חדש? השינויים הלא שמורים יאבדו.\n(Are you sure you want to create a new file? Unsaved changes will be lost.)"
)

func msgLoaded(name string) string {
	return fmt.Sprintf("קובץ נטען בהצלחה: %s (File loaded successfully: %s)", name, name)
}

func msgSaved(name string) string {
	return fmt.Sprintf("קובץ נשמר בהצלחה: %s (File saved successfully: %s)", name, name)
}
