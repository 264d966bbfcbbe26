package generator

import "jlpt-listening/internal/core/question"

var defaultQuestions = map[int]question.Question{
	question.SectionOne: {
		Introduction:  "男の人と女の人が話しています。男の人はこのあと何をしますか。",
		Conversation:  "女：田中さん、会議の資料、もうコピーしましたか。\n男：いいえ、まだです。\n女：じゃあ、先にコピーをお願いします。会議室の準備は私がしますから。\n男：わかりました。",
		Question:      "男の人はこのあと何をしますか。",
		Options:       []string{"資料をコピーする", "会議室を準備する", "会議に出る", "資料を作る"},
		CorrectAnswer: question.IntPtr(0),
		Section:       question.SectionOne,
	},
	question.SectionTwo: {
		Introduction:  "女の人と男の人がレストランで話しています。女の人は何を注文しますか。",
		Conversation:  "男：何にする？\n女：そうね、パスタもいいけど、今日は寒いからラーメンにしようかな。\n男：じゃあ、僕はカレーにするよ。",
		Question:      "女の人は何を注文しますか。",
		Options:       []string{"パスタ", "ラーメン", "カレー", "サラダ"},
		CorrectAnswer: question.IntPtr(1),
		Section:       question.SectionTwo,
	},
	question.SectionThree: {
		Introduction:  "駅でアナウンスが流れています。",
		Conversation:  "お知らせいたします。三番線に到着予定の快速電車は、事故の影響で約十五分遅れております。お急ぎのところ、大変ご迷惑をおかけいたします。",
		Question:      "快速電車はどうなりましたか。",
		Options:       []string{"運転を中止した", "十五分遅れている", "三番線に変わった", "予定どおり到着する"},
		CorrectAnswer: question.IntPtr(1),
		Section:       question.SectionThree,
	},
}

// DefaultQuestion returns the hand-written fallback for a section; anything
// other than 1 or 2 gets the section 3 question.
func DefaultQuestion(section *int) question.Question {
	key := question.SectionThree
	if section != nil {
		if _, ok := defaultQuestions[*section]; ok {
			key = *section
		}
	}
	q := defaultQuestions[key]
	q.Options = append([]string(nil), q.Options...)
	q.CorrectAnswer = question.IntPtr(*q.CorrectAnswer)
	return q
}
