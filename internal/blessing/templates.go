package blessing

import "strings"

// blessingTemplates maps holiday names to fallback blessings used when the
// LLM is unavailable. Matching is by substring so variants like "春节假期"
// still hit the right entry.
var blessingTemplates = map[string]string{
	"春节":  "新春快乐！祝您在新的一年里身体健康，工作顺利，阖家幸福！",
	"元旦":  "元旦快乐！新年新气象，祝您在新的一年里万事如意，心想事成！",
	"中秋节": "中秋节快乐！月圆人团圆，祝您和家人团团圆圆，幸福美满！",
	"国庆节": "国庆节快乐！祝愿祖国繁荣昌盛，祝您节日愉快，身体健康！",
	"劳动节": "劳动节快乐！向所有辛勤工作的人们致敬，祝您节日愉快！",
	"端午节": "端午节快乐！粽子香，艾叶长，祝您身体健康，平安吉祥！",
	"清明节": "清明时节，缅怀先人，珍惜当下，祝您身体健康，工作顺利！",
	"元宵节": "元宵节快乐！花好月圆人团圆，祝您家庭幸福，事业有成！",
}

// Template returns the fallback blessing for a holiday.
func Template(holidayName string) string {
	for key, text := range blessingTemplates {
		if strings.Contains(holidayName, key) {
			return text
		}
	}
	return holidayName + "快乐！祝您节日愉快，身体健康，工作顺利，阖家幸福！"
}

// SystemInstruction steers the LLM to answer with the blessing text only.
const SystemInstruction = "你是一个专业的节日祝福生成器，输出仅为祝福语文本，不要添加额外解释。"

// promptTemplate expects the holiday name. The customs hint lets the model
// use its search tool for grounding when enabled.
const promptTemplate = "请先了解%s的节日习俗，然后生成一段温暖、简短的中文祝福语（50-100字），要体现节日特色和美好祝愿。"
