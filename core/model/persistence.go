package model

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
)

// SaveModel はモデルをgob形式でファイルに保存する
//
// 一時ファイルに書き込んでからリネームするため、途中で失敗しても
// 既存のファイルは壊れない。
//
// 使用例:
//
//	art := pipeline.Artifact{Vectorizer: dv, Booster: booster}
//	err := model.SaveModel(&art, "xgboost_model_booking_cancellation_smote.bin")
func SaveModel(model any, filename string) error {
	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, filepath.Base(filename)+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "failed to create file in %s", dir)
	}
	tmpName := tmp.Name()

	if err := SaveModelToWriter(model, tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to close file")
	}
	if err := os.Rename(tmpName, filename); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to move model to %s", filename)
	}
	return nil
}

// LoadModel はファイルからモデルを読み込む
//
// 使用例:
//
//	var art pipeline.Artifact
//	err := model.LoadModel(&art, "xgboost_model_booking_cancellation_smote.bin")
func LoadModel(model any, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	return LoadModelFromReader(model, file)
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(model any, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(model); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(model any, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(model); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
