package collections

import "fmt"

// dynamicSchema returns schema DDL using the configured embedding dimension
func dynamicSchema(embeddingDims int) []string {
	if embeddingDims <= 0 {
		embeddingDims = 4
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS collection_texts (
        collection TEXT NOT NULL,
        key TEXT NOT NULL,
        text TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (collection, key)
    )`,

		// one vector per text and search method
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS collection_vectors (
        collection TEXT NOT NULL,
        search_method TEXT NOT NULL,
        key TEXT NOT NULL,
        embedding F32_BLOB(%d) NOT NULL,
        PRIMARY KEY (collection, search_method, key),
        FOREIGN KEY (collection, key) REFERENCES collection_texts(collection, key)
    )`, embeddingDims),

		`CREATE INDEX IF NOT EXISTS idx_vectors_method ON collection_vectors(collection, search_method)`,
		`CREATE INDEX IF NOT EXISTS idx_texts_created_at ON collection_texts(collection, created_at)`,
	}
}
