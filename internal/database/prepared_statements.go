package database

import (
	"log"
	"sync"

	"github.com/gocql/gocql"
)

var (
	// Prepared statements pour les requêtes fréquentes du moteur de retours
	stmtGetOrderByNumber *gocql.Query
	stmtGetReturnByID    *gocql.Query
	stmtListReturnIDs    *gocql.Query

	preparedOnce sync.Once
)

// InitPreparedStatements initialise les prepared statements
func InitPreparedStatements() {
	preparedOnce.Do(func() {
		orders, err := GetOrdersSession()
		if err != nil {
			log.Printf("⚠️ Impossible d'initialiser les prepared statements (orders): %v", err)
			return
		}
		returns, err := GetReturnsSession()
		if err != nil {
			log.Printf("⚠️ Impossible d'initialiser les prepared statements (returns): %v", err)
			return
		}

		// Résolution du numéro de commande (parcours invité : à chaque requête)
		stmtGetOrderByNumber = orders.Query("SELECT order_id FROM orders_by_number WHERE order_number = ?")

		// Lecture d'un retour (consultation de statut, la requête la plus fréquente)
		stmtGetReturnByID = returns.Query(`SELECT order_id, order_number, customer_id, status, submitted_at
			FROM returns WHERE return_id = ?`)

		// Historique des retours d'une commande
		stmtListReturnIDs = returns.Query("SELECT return_id FROM returns_by_order WHERE order_id = ?")

		log.Println("✅ Prepared statements initialisés")
	})
}

func GetPreparedGetOrderByNumber() *gocql.Query {
	return stmtGetOrderByNumber
}

func GetPreparedGetReturnByID() *gocql.Query {
	return stmtGetReturnByID
}

func GetPreparedListReturnIDs() *gocql.Query {
	return stmtListReturnIDs
}
