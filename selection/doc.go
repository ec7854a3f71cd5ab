// Package selection は与えられたデータセットに対して候補アルゴリズムを学習・評価し、
// 最良のものを選ぶモデル選択の決定手続きを提供する。
//
// 分類は正解率、回帰は RMSE で候補を比較する。クラスタリングは候補ごとに
// クラスタ数 k の歪みカーブを作り、エルボー法で k を選んでから比較する。
// 学習アルゴリズム自体は Trainer / ClusterTrainer として外から注入する。
//
// 基本的な使い方:
//
//	reg := trainers.DefaultRegistry(42)
//	o := selection.NewOrchestrator(reg)
//	out, err := o.SelectModel(ds, selection.Classification)
//	if err != nil {
//	    var stageErr *selection.StageError
//	    if errors.As(err, &stageErr) {
//	        // stageErr.Stage は失敗した段階
//	    }
//	}
//	fmt.Println(out.Winner)
//
// 勝者をデータ全体で学習し直すには FitFinal を使う。
package selection
