// Package balance считает баланс баллов: полученные благодарности плюс
// золотые жетоны с множителем минус действующие списания.
package balance

// Summary — разбивка баланса пользователя.
type Summary struct {
	User int64 `json:"user_id"`
	// Received — число полученных обычных благодарностей
	Received int64 `json:"received"`
	// Golden — число полученных золотых жетонов (без стартового)
	Golden int64 `json:"golden"`
	Earned int64 `json:"earned"`
	Spent  int64 `json:"spent"`
	// Balance = Earned - Spent, может быть отрицательным
	Balance int64 `json:"balance"`
}

// SpendInput — покупка за баллы.
type SpendInput struct {
	User      int64
	Value     int64
	Message   string
	CreatedBy int64
}
