package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = bluemonday.StrictPolicy()

	// угловые скобки, оставшиеся после раскодирования сущностей вроде &lt;b&gt;
	angles = strings.NewReplacer("<", "", ">", "")
)

// * String вырезает разметку и скрипты из пользовательской строки до записи или поиска.
// bluemonday экранирует текст (' -> &#39;, & -> &amp;), поэтому результат раскодируется обратно
func String(s string) string {
	return strings.TrimSpace(angles.Replace(html.UnescapeString(strict.Sanitize(s))))
}

// * Username имя пользователя без разметки и пробелов
func Username(s string) string {
	return strings.Join(strings.Fields(String(s)), "")
}
