package installment

import "time"

// Planned is a generated installment with its name and due date assigned
type Planned struct {
	Position int       `json:"position"`
	Name     string    `json:"name"`
	Amount   int64     `json:"amount"`
	DueDate  time.Time `json:"due_date"`
}

// Plan generates the amounts for policy and lays them out on a monthly calendar.
// Installment N falls due intervalMonths*(N-1) months after firstDue.
func Plan(total int64, count int, policy Policy, firstDue time.Time, intervalMonths int) ([]Planned, error) {
	amounts, err := Generate(total, count, policy)
	if err != nil {
		return nil, err
	}
	if intervalMonths < 1 {
		intervalMonths = 1
	}

	planned := make([]Planned, len(amounts))
	for i, amount := range amounts {
		planned[i] = Planned{
			Position: i + 1,
			Name:     Name(i + 1),
			Amount:   amount,
			DueDate:  addMonths(firstDue, i*intervalMonths),
		}
	}
	return planned, nil
}

// addMonths moves t forward by months, clamping to the last day of the target month
// so a 31st never spills into the following month
func addMonths(t time.Time, months int) time.Time {
	if months == 0 {
		return t
	}
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, 0, 0, 0, 0, t.Location())
}
