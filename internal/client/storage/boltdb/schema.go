package boltdb

import (
	"fmt"
	"strconv"

	"go.etcd.io/bbolt"

	"github.com/iudanet/gennotes/internal/client/storage"
)

var keySchemaVersion = []byte("schema_version")

// migration аддитивное изменение схемы; данные и бакеты никогда не удаляются
type migration struct {
	apply   func(tx *bbolt.Tx) error
	name    string
	version int
}

var migrations = []migration{
	{version: 1, name: "notes, queue, auth, meta", apply: createBuckets(bucketNotes, bucketQueue, bucketAuth, bucketMeta)},
	{version: 2, name: "conflicts, tags, folders", apply: createBuckets(bucketConflicts, bucketTags, bucketFolders)},
}

// SchemaVersion последняя версия схемы, известная клиенту
var SchemaVersion = migrations[len(migrations)-1].version

func createBuckets(names ...[]byte) func(tx *bbolt.Tx) error {
	return func(tx *bbolt.Tx) error {
		for _, name := range names {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	}
}

// migrate применяет недостающие миграции по порядку
func migrate(tx *bbolt.Tx) error {
	meta, err := tx.CreateBucketIfNotExists(bucketMeta)
	if err != nil {
		return fmt.Errorf("failed to create meta bucket: %w", err)
	}

	current, err := readVersion(meta)
	if err != nil {
		return err
	}
	if current > SchemaVersion {
		return fmt.Errorf("%w: on disk %d, supported %d", storage.ErrSchemaTooNew, current, SchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := m.apply(tx); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		if err := meta.Put(keySchemaVersion, []byte(strconv.Itoa(m.version))); err != nil {
			return fmt.Errorf("failed to save schema version: %w", err)
		}
	}

	return nil
}

func readVersion(meta *bbolt.Bucket) (int, error) {
	raw := meta.Get(keySchemaVersion)
	if raw == nil {
		return 0, nil
	}
	v, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid schema version %q: %w", raw, err)
	}
	return v, nil
}
