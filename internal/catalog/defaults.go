package catalog

import "github.com/shopspring/decimal"

func gb(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }

// Default seeds a new family's catalog with the stock reward, screen,
// food, and consequence tables. Admins edit these per family later.
func Default() *Catalog {
	return &Catalog{
		Rewards: []RewardAction{
			{ID: "math_correct", Label: "Math: Correct problem", Delta: gb("0.25")},
			{ID: "math_3row", Label: "Math: 3 correct in a row", Delta: gb("0.50")},
			{ID: "math_hard", Label: "Math: Hard problem", Delta: gb("1.00")},
			{ID: "lit_read1", Label: "Reading: 1 page aloud", Delta: gb("0.25")},
			{ID: "lit_read5", Label: "Reading: 5 pages", Delta: gb("1.00")},
			{ID: "spell_word", Label: "Spelling: 1 word correct", Delta: gb("0.25")},
			{ID: "write_sentence", Label: "Writing: 1 sentence", Delta: gb("0.50")},
		},
		Screen: []ScreenPackage{
			{ID: "tab10", Label: "Tablet 10 min", Cost: gb("0.50"), Minutes: 10},
			{ID: "tab20", Label: "Tablet 20 min", Cost: gb("1.00"), Minutes: 20},
			{ID: "tab30", Label: "Tablet 30 min", Cost: gb("1.50"), Minutes: 30},
			{ID: "tab45", Label: "Tablet 45 min", Cost: gb("2.25"), Minutes: 45},
			{ID: "tab60", Label: "Tablet 60 min", Cost: gb("3.00"), Minutes: 60},
			{ID: "game15", Label: "Game 15 min", Cost: gb("0.75"), Minutes: 15},
			{ID: "game30", Label: "Game 30 min", Cost: gb("1.50"), Minutes: 30},
			{ID: "game45", Label: "Game 45 min", Cost: gb("2.25"), Minutes: 45},
			{ID: "game60", Label: "Game 60 min", Cost: gb("3.00"), Minutes: 60},
		},
		Food: []FoodItem{
			{ID: "b_eggs", Category: "Breakfast", Label: "Eggs", Cost: gb("2.00")},
			{ID: "b_bacon", Category: "Breakfast", Label: "Bacon", Cost: gb("3.00")},
			{ID: "b_sausage", Category: "Breakfast", Label: "Sausage", Cost: gb("3.00")},
			{ID: "b_waffles", Category: "Breakfast", Label: "Waffles", Cost: gb("4.00")},
			{ID: "b_chobani_flip", Category: "Breakfast", Label: "Chobani Flip Yogurt", Cost: gb("2.50")},
			{ID: "l_poor_sandwich", Category: "Lunch", Label: "Poor Man's Sandwich", Cost: gb("5.00")},
			{ID: "l_combo", Category: "Lunch", Label: "Nuggets + Fries", Cost: gb("6.00")},
			{ID: "l_coke", Category: "Lunch", Label: "Coke (Can)", Cost: gb("1.00")},
			{ID: "d_spaghetti", Category: "Dinner", Label: "Spaghetti", Cost: gb("7.00")},
			{ID: "d_tacos2", Category: "Dinner", Label: "Tacos (2)", Cost: gb("6.00")},
			{ID: "d_dessert", Category: "Dinner", Label: "Dessert", Cost: gb("2.50")},
		},
		TimeConsequences: []TimeConsequence{
			{ID: "minus5", Label: "Time -5 minutes", DeltaMinutes: intPtr(-5)},
			{ID: "minus10", Label: "Time -10 minutes", DeltaMinutes: intPtr(-10)},
			{ID: "end_session", Label: "End current session (minutes=0)", SetMinutes: intPtr(0)},
			{ID: "lock_day", Label: "Lock screens for today", Lock: boolPtr(true)},
			{ID: "unlock", Label: "Unlock screens", Lock: boolPtr(false)},
		},
		MoneyConsequences: []MoneyConsequence{
			{ID: "deduct25", Label: "-$0.25", Delta: gb("-0.25")},
			{ID: "deduct50", Label: "-$0.50", Delta: gb("-0.50")},
			{ID: "deduct100", Label: "-$1.00", Delta: gb("-1.00")},
			{ID: "deduct200", Label: "-$2.00", Delta: gb("-2.00")},
		},
		Savings: SavingsPolicy{
			Enabled:           false,
			DefaultPercentage: 0,
		},
	}
}
