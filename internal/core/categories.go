package core

const (
	DefaultCategoryIcon  = "tag"
	DefaultCategoryColor = "#3b82f6"
)

// DefaultCategories is the set every new account starts with, in display
// order within each type.
func DefaultCategories() []Category {
	seed := []struct {
		typ        CategoryType
		name, icon string
		color      string
	}{
		{CategoryIncome, "Salário", "briefcase", "#10b981"},
		{CategoryIncome, "Freelance", "laptop-code", "#3b82f6"},
		{CategoryIncome, "Investimentos", "chart-line", "#8b5cf6"},
		{CategoryIncome, "Vendas", "store", "#f59e0b"},
		{CategoryIncome, "Presentes", "gift", "#ec4899"},
		{CategoryIncome, "Outros", "ellipsis-h", "#64748b"},

		{CategoryExpense, "Alimentação", "utensils", "#ef4444"},
		{CategoryExpense, "Moradia", "home", "#f97316"},
		{CategoryExpense, "Transporte", "car", "#3b82f6"},
		{CategoryExpense, "Saúde", "heartbeat", "#ec4899"},
		{CategoryExpense, "Educação", "book", "#8b5cf6"},
		{CategoryExpense, "Lazer", "film", "#f59e0b"},
		{CategoryExpense, "Vestuário", "tshirt", "#6366f1"},
		{CategoryExpense, "Assinaturas", "repeat", "#14b8a6"},
		{CategoryExpense, "Outros", "ellipsis-h", "#64748b"},

		{CategoryInvestment, "Poupança", "piggy-bank", "#10b981"},
		{CategoryInvestment, "Tesouro Direto", "landmark", "#f59e0b"},
		{CategoryInvestment, "Ações", "chart-line", "#3b82f6"},
		{CategoryInvestment, "Fundos Imobiliários", "building", "#8b5cf6"},
		{CategoryInvestment, "CDB/RDB", "money-bill", "#ec4899"},
		{CategoryInvestment, "Criptomoedas", "bitcoin", "#f97316"},
	}

	out := make([]Category, 0, len(seed))
	order := 0
	for _, s := range seed {
		order++
		out = append(out, Category{
			Name:         s.name,
			Type:         s.typ,
			Icon:         s.icon,
			Color:        s.color,
			IsDefault:    true,
			IsActive:     true,
			DisplayOrder: order,
		})
	}
	return out
}
