package dailypuzzle

import (
	"strings"
)

// Normalize приводит ответ к каноническому виду перед сравнением:
//  1. переводит строку в нижний регистр;
//  2. удаляет всё, кроме a-z, 0-9 и пробельных символов;
//  3. обрезает пробелы по краям;
//  4. схлопывает любую серию пробельных символов в один пробел.
//
// Функция тотальна и идемпотентна: Normalize(Normalize(s)) == Normalize(s).
// Пустая строка нормализуется в пустую.
func Normalize(s string) string {
	lowered := strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(lowered))

	// pendingSpace откладывает запись пробела до следующего значимого символа,
	// поэтому пробелы по краям и повторные пробелы не попадают в результат.
	pendingSpace := false
	for _, r := range lowered {
		switch {
		case isASCIIAlnum(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case isAnswerSpace(r):
			pendingSpace = true
		}
		// Остальные символы (пунктуация, диакритика, кириллица) отбрасываются
		// и не разрывают серию пробелов.
	}

	return b.String()
}

// Matches сообщает, совпадает ли ответ пользователя с каноническим после нормализации.
// Сравнение строгое: никаких синонимов и допусков по расстоянию редактирования.
// Пробел между словами значим: "olivegarden" не совпадает с "olive garden".
func Matches(userAnswer, canonicalAnswer string) bool {
	return Normalize(userAnswer) == Normalize(canonicalAnswer)
}

// isAnswerSpace распознает тот же набор пробельных символов, что и класс \s
// в регулярных выражениях ECMAScript: в отличие от unicode.IsSpace, сюда
// входит U+FEFF и не входит U+0085.
func isAnswerSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ',
		'\u00A0', '\u1680', '\u2028', '\u2029', '\u202F', '\u205F', '\u3000', '\uFEFF':
		return true
	}
	return '\u2000' <= r && r <= '\u200A'
}

func isASCIIAlnum(r rune) bool {
	return ('a' <= r && r <= 'z') || ('0' <= r && r <= '9')
}
